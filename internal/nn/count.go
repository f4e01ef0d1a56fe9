package nn

// Predicate selects parameters by full name and value.
type Predicate func(name string, p *Parameter) bool

// All selects every parameter.
func All(string, *Parameter) bool { return true }

// Trainable selects parameters whose trainable flag is set.
func Trainable(_ string, p *Parameter) bool { return p.Trainable }

// And combines predicates; a parameter must satisfy all of them.
func And(preds ...Predicate) Predicate {
	return func(name string, p *Parameter) bool {
		for _, pred := range preds {
			if !pred(name, p) {
				return false
			}
		}
		return true
	}
}

// Not inverts a predicate.
func Not(pred Predicate) Predicate {
	return func(name string, p *Parameter) bool { return !pred(name, p) }
}

// Count sums the element counts of parameters under m that satisfy pred.
func Count(m *Module, pred Predicate) int64 {
	var n int64
	for name, p := range m.NamedParameters() {
		if pred(name, p) {
			n += p.Numel()
		}
	}
	return n
}

// Names returns the full names of parameters under m that satisfy pred, in traversal order.
func Names(m *Module, pred Predicate) []string {
	var out []string
	for name, p := range m.NamedParameters() {
		if pred(name, p) {
			out = append(out, name)
		}
	}
	return out
}
