package lora

import (
	"fmt"
	"iter"
	"strings"

	"loraverify/internal/nn"
)

const (
	// TypeConv2d is the module type of an adapter-augmented convolution.
	TypeConv2d = "lora.Conv2d"
	// ParamPrefix marks adapter parameter names.
	ParamPrefix = "lora_"
)

// Config holds adapter hyperparameters.
type Config struct {
	Rank         int
	Alpha        float64
	Dropout      float64
	MergeWeights bool
}

// Scaling is alpha/r, the factor applied to the low-rank update.
func (c Config) Scaling() float64 {
	if c.Rank <= 0 {
		return 0
	}
	return c.Alpha / float64(c.Rank)
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	if c.Rank <= 0 {
		return fmt.Errorf("lora: rank must be positive, got %d", c.Rank)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("lora: dropout must be in [0,1), got %g", c.Dropout)
	}
	return nil
}

// Wrap returns an adapter-augmented module around base, which must be an nn.Conv2d.
// lora_A has shape [r*k, in*k] and lora_B has shape [out/groups*k, r*k].
func Wrap(base *nn.Module, cfg Config) (*nn.Module, error) {
	if base == nil || base.Conv == nil {
		return nil, fmt.Errorf("lora: base module is not a convolution")
	}
	if base.Has(nn.CapAdapter) {
		return nil, fmt.Errorf("lora: base module is already adapter-augmented")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := base.Conv
	k, r := s.Kernel, cfg.Rank
	m := nn.New(TypeConv2d, nn.CapAdapter)
	m.Rank = r
	m.AddParam("lora_A", r*k, s.In*k)
	m.AddParam("lora_B", s.Out/s.Groups*k, r*k)
	m.AddChild("conv", base)
	return m, nil
}

// FindAdapters yields every adapter-augmented module under root with its full name.
// The sequence is lazy and may be ranged over repeatedly.
func FindAdapters(root *nn.Module) iter.Seq2[string, *nn.Module] {
	return func(yield func(string, *nn.Module) bool) {
		for name, m := range root.NamedModules() {
			if !m.Has(nn.CapAdapter) {
				continue
			}
			if !yield(name, m) {
				return
			}
		}
	}
}

// IsAdapterParam reports whether the parameter is an adapter weight.
func IsAdapterParam(_ string, p *nn.Parameter) bool {
	return strings.HasPrefix(p.Name, ParamPrefix)
}

// IsBias reports whether the parameter is a bias term.
func IsBias(_ string, p *nn.Parameter) bool { return p.Name == "bias" }
