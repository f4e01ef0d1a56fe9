package nn

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Trainability maps full parameter names to their trainable flag.
type Trainability map[string]bool

// Snapshot captures the current trainable flags of every parameter under m.
func Snapshot(m *Module) Trainability {
	t := make(Trainability)
	for name, p := range m.NamedParameters() {
		t[name] = p.Trainable
	}
	return t
}

// Apply writes the flags in t onto the parameters under m. Every parameter must
// have an entry and every entry must name a parameter; on mismatch nothing is written.
func (t Trainability) Apply(m *Module) error {
	targets := make(map[string]*Parameter, len(t))
	for name, p := range m.NamedParameters() {
		if _, ok := t[name]; !ok {
			return fmt.Errorf("trainability: no entry for parameter %q", name)
		}
		targets[name] = p
	}
	if len(targets) != len(t) {
		for name := range t {
			if _, ok := targets[name]; !ok {
				return fmt.Errorf("trainability: unknown parameter %q", name)
			}
		}
	}
	for name, p := range targets {
		p.Trainable = t[name]
	}
	return nil
}

// TrainableNames returns the sorted names whose flag is set.
func (t Trainability) TrainableNames() []string {
	out := make([]string, 0, len(t))
	for name, ok := range t {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both mappings hold the same names with the same flags.
func (t Trainability) Equal(o Trainability) bool {
	if len(t) != len(o) {
		return false
	}
	for name, v := range t {
		ov, ok := o[name]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Changed returns the sorted names whose flag differs between t and next.
// Names present in only one of the mappings are included.
func (t Trainability) Changed(next Trainability) []string {
	var out []string
	for name, v := range t {
		if nv, ok := next[name]; !ok || nv != v {
			out = append(out, name)
		}
	}
	for name := range next {
		if _, ok := t[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Digest is a stable 64-bit fingerprint of the trainable set.
func (t Trainability) Digest() uint64 {
	h := xxhash.New()
	for _, name := range t.TrainableNames() {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// DigestString renders Digest as fixed-width hex.
func (t Trainability) DigestString() string {
	s := strconv.FormatUint(t.Digest(), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
