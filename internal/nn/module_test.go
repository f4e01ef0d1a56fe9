package nn

import (
	"testing"
)

// tiny builds:
//
//	root
//	├── a (Conv): weight[4,2,3,3], bias[4]
//	└── b (Seq)
//	    └── 0 (Lin, adapter): weight[8,4]
func tiny() *Module {
	root := New("Model")
	a := root.AddChild("a", New("Conv"))
	a.AddParam("weight", 4, 2, 3, 3)
	a.AddParam("bias", 4)
	b := root.AddChild("b", New("Seq"))
	l := b.AddChild("0", New("Lin", CapAdapter))
	l.AddParam("weight", 8, 4)
	return root
}

func TestNamedModulesPreOrder(t *testing.T) {
	var names []string
	for name := range tiny().NamedModules() {
		names = append(names, name)
	}
	want := []string{"", "a", "b", "b.0"}
	if len(names) != len(want) {
		t.Fatalf("got %v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v want %v", names, want)
		}
	}
}

func TestNamedModulesRestartable(t *testing.T) {
	seq := tiny().NamedModules()
	n1, n2 := 0, 0
	for range seq {
		n1++
	}
	for range seq {
		n2++
	}
	if n1 != 4 || n1 != n2 {
		t.Fatalf("expected 4 modules on both passes, got %d and %d", n1, n2)
	}
}

func TestNamedModulesEarlyStop(t *testing.T) {
	n := 0
	for range tiny().NamedModules() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("expected to stop after 2, got %d", n)
	}
}

func TestNamedParameters(t *testing.T) {
	var names []string
	for name := range tiny().NamedParameters() {
		names = append(names, name)
	}
	want := []string{"a.weight", "a.bias", "b.0.weight"}
	if len(names) != len(want) {
		t.Fatalf("got %v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v want %v", names, want)
		}
	}
}

func TestCount(t *testing.T) {
	m := tiny()
	if got := Count(m, All); got != 72+4+32 {
		t.Fatalf("all: got %d", got)
	}
	if got := Count(m, Trainable); got != Count(m, All) {
		t.Fatalf("fresh params must all be trainable, got %d", got)
	}
	m.Lookup("a").Param("weight").Trainable = false
	if got := Count(m, Trainable); got != 4+32 {
		t.Fatalf("trainable: got %d", got)
	}
	if got := Count(m, Not(Trainable)); got != 72 {
		t.Fatalf("frozen: got %d", got)
	}
	if got := Count(m, And(Trainable, func(n string, _ *Parameter) bool { return n == "a.bias" })); got != 4 {
		t.Fatalf("and: got %d", got)
	}
}

func TestNumelScalarShape(t *testing.T) {
	p := &Parameter{Name: "x"}
	if p.Numel() != 0 {
		t.Fatalf("empty shape should count zero elements")
	}
}

func TestLookupAndSetChild(t *testing.T) {
	m := tiny()
	if m.Lookup("b.0") == nil || m.Lookup("b.1") != nil || m.Lookup("") != m {
		t.Fatalf("lookup mismatch")
	}
	repl := New("Lin")
	if !m.Lookup("b").SetChild("0", repl) {
		t.Fatalf("expected replace")
	}
	if m.Lookup("b.0") != repl {
		t.Fatalf("child not replaced")
	}
	if m.SetChild("zz", repl) {
		t.Fatalf("unexpected replace of missing child")
	}
}

func TestHasCapability(t *testing.T) {
	m := New("X", CapAdapter, CapDetect)
	if !m.Has(CapAdapter) || !m.Has(CapDetect) || !m.Has(CapAdapter|CapDetect) {
		t.Fatalf("caps not set: %b", m.Caps)
	}
	if New("Y").Has(CapAdapter) {
		t.Fatalf("unexpected cap")
	}
}
