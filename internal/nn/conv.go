package nn

import "fmt"

// TypeConv2d is the module type of a plain 2D convolution.
const TypeConv2d = "nn.Conv2d"

// ConvSpec holds the hyperparameters that determine a convolution's parameter shapes.
type ConvSpec struct {
	In     int
	Out    int
	Kernel int
	Stride int
	Groups int
	Bias   bool
}

// NewConv2d builds an nn.Conv2d module: weight[out, in/groups, k, k] and an optional bias[out].
func NewConv2d(spec ConvSpec) (*Module, error) {
	if spec.Groups <= 0 {
		spec.Groups = 1
	}
	if spec.Stride <= 0 {
		spec.Stride = 1
	}
	switch {
	case spec.In <= 0 || spec.Out <= 0:
		return nil, fmt.Errorf("conv2d: channels must be positive (in=%d out=%d)", spec.In, spec.Out)
	case spec.Kernel <= 0:
		return nil, fmt.Errorf("conv2d: kernel must be positive, got %d", spec.Kernel)
	case spec.In%spec.Groups != 0 || spec.Out%spec.Groups != 0:
		return nil, fmt.Errorf("conv2d: channels %d->%d not divisible by groups %d", spec.In, spec.Out, spec.Groups)
	}
	m := New(TypeConv2d)
	s := spec
	m.Conv = &s
	m.AddParam("weight", spec.Out, spec.In/spec.Groups, spec.Kernel, spec.Kernel)
	if spec.Bias {
		m.AddParam("bias", spec.Out)
	}
	return m, nil
}

// NewBatchNorm2d builds a batch norm with affine weight and bias. Running statistics are buffers and are not modeled.
func NewBatchNorm2d(c int) *Module {
	m := New("nn.BatchNorm2d")
	m.AddParam("weight", c)
	m.AddParam("bias", c)
	return m
}
