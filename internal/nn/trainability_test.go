package nn

import "testing"

func TestSnapshotApplyRoundTrip(t *testing.T) {
	m := tiny()
	snap := Snapshot(m)
	if len(snap) != 3 || !snap["a.weight"] {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
	next := Trainability{"a.weight": false, "a.bias": true, "b.0.weight": false}
	if err := next.Apply(m); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !Snapshot(m).Equal(next) {
		t.Fatalf("applied state differs: %v", Snapshot(m))
	}
	if got := snap.Changed(next); len(got) != 2 || got[0] != "a.weight" || got[1] != "b.0.weight" {
		t.Fatalf("changed: %v", got)
	}
}

func TestApplyIsAtomic(t *testing.T) {
	m := tiny()
	missing := Trainability{"a.weight": false, "a.bias": false}
	if err := missing.Apply(m); err == nil {
		t.Fatalf("expected error for missing entry")
	}
	extra := Trainability{"a.weight": false, "a.bias": false, "b.0.weight": false, "ghost": true}
	if err := extra.Apply(m); err == nil {
		t.Fatalf("expected error for unknown entry")
	}
	if Count(m, Trainable) != Count(m, All) {
		t.Fatalf("failed apply must not change flags")
	}
}

func TestDigest(t *testing.T) {
	a := Trainability{"x": true, "y": false, "z": true}
	b := Trainability{"z": true, "x": true, "y": false}
	if a.Digest() != b.Digest() {
		t.Fatalf("digest must not depend on map order")
	}
	c := Trainability{"x": true, "y": true, "z": true}
	if a.Digest() == c.Digest() {
		t.Fatalf("digest should change with trainable set")
	}
	if len(a.DigestString()) != 16 {
		t.Fatalf("digest string width: %q", a.DigestString())
	}
	if names := a.TrainableNames(); len(names) != 2 || names[0] != "x" || names[1] != "z" {
		t.Fatalf("trainable names: %v", names)
	}
}
