package lora

import (
	"fmt"
	"strings"

	"loraverify/internal/nn"
)

// BiasMode decides which bias parameters stay trainable after freezing.
type BiasMode string

const (
	// BiasNone freezes every bias.
	BiasNone BiasMode = "none"
	// BiasAll keeps every bias trainable.
	BiasAll BiasMode = "all"
	// BiasAdapterOnly keeps only biases owned by adapter-augmented modules trainable.
	BiasAdapterOnly BiasMode = "adapter_only"
)

// ParseBiasMode accepts none, all, adapter_only and the alias lora_only. Empty means none.
func ParseBiasMode(s string) (BiasMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BiasNone, nil
	case "all":
		return BiasAll, nil
	case "adapter_only", "lora_only":
		return BiasAdapterOnly, nil
	default:
		return "", fmt.Errorf("unknown bias mode %q (want none|all|adapter_only)", s)
	}
}

// Plan computes the trainable flags the freezing policy assigns to every
// parameter under root. It does not modify root.
func Plan(root *nn.Module, mode BiasMode) (nn.Trainability, error) {
	t := make(nn.Trainability)
	for name, p := range root.NamedParameters() {
		t[name] = IsAdapterParam(name, p)
	}
	switch mode {
	case BiasNone, "":
	case BiasAll:
		for name, p := range root.NamedParameters() {
			if IsBias(name, p) {
				t[name] = true
			}
		}
	case BiasAdapterOnly:
		for prefix, m := range FindAdapters(root) {
			for name, p := range m.NamedParameters() {
				if IsBias(name, p) {
					if prefix != "" {
						name = prefix + "." + name
					}
					t[name] = true
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown bias mode %q", mode)
	}
	return t, nil
}

// MarkOnlyAdapterTrainable freezes every non-adapter parameter under root,
// subject to mode for biases, and returns the applied mapping.
// Calling it again with the same mode leaves the flags unchanged.
func MarkOnlyAdapterTrainable(root *nn.Module, mode BiasMode) (nn.Trainability, error) {
	t, err := Plan(root, mode)
	if err != nil {
		return nil, err
	}
	if err := t.Apply(root); err != nil {
		return nil, err
	}
	return t, nil
}
