package yolo

import (
	"fmt"
	"strconv"

	"loraverify/internal/description"
	"loraverify/internal/lora"
	"loraverify/internal/nn"
)

// builder carries per-layer state while constructing modules.
type builder struct {
	desc  *description.Description
	cfg   lora.Config
	layer int
}

// wants reports whether convolutions inside a module of type typ receive
// adapters. inherited is set when an enclosing module was already targeted.
func (b *builder) wants(typ string, inherited bool) bool {
	l := b.desc.LoRA
	if l.R <= 0 || !l.AllowsLayer(b.layer) {
		return false
	}
	return inherited || l.Targeted(typ)
}

func (b *builder) conv2d(spec nn.ConvSpec, adapter bool) (*nn.Module, error) {
	base, err := nn.NewConv2d(spec)
	if err != nil {
		return nil, err
	}
	if !adapter {
		return base, nil
	}
	return lora.Wrap(base, b.cfg)
}

// conv is Conv2d + BatchNorm2d (+ activation, which has no parameters).
func (b *builder) conv(typ string, c1, c2, k, s, g int, adapter bool) (*nn.Module, error) {
	inner, err := b.conv2d(nn.ConvSpec{In: c1, Out: c2, Kernel: k, Stride: s, Groups: g}, adapter)
	if err != nil {
		return nil, err
	}
	m := nn.New(typ)
	m.AddChild("conv", inner)
	m.AddChild("bn", nn.NewBatchNorm2d(c2))
	return m, nil
}

func (b *builder) bottleneck(c1, c2, g int, e float64, inherited bool) (*nn.Module, error) {
	inh := b.wants("Bottleneck", inherited)
	c := int(float64(c2) * e)
	m := nn.New("Bottleneck")
	cv1, err := b.conv("Conv", c1, c, 1, 1, 1, b.wants("Conv", inh))
	if err != nil {
		return nil, err
	}
	cv2, err := b.conv("Conv", c, c2, 3, 1, g, b.wants("Conv", inh))
	if err != nil {
		return nil, err
	}
	m.AddChild("cv1", cv1)
	m.AddChild("cv2", cv2)
	return m, nil
}

func (b *builder) c3(c1, c2, n, g int, e float64, inherited bool) (*nn.Module, error) {
	c := int(float64(c2) * e)
	m := nn.New("C3")
	specs := []struct {
		name   string
		c1, c2 int
	}{{"cv1", c1, c}, {"cv2", c1, c}, {"cv3", 2 * c, c2}}
	for _, s := range specs {
		cv, err := b.conv("Conv", s.c1, s.c2, 1, 1, 1, b.wants("Conv", inherited))
		if err != nil {
			return nil, err
		}
		m.AddChild(s.name, cv)
	}
	seq := m.AddChild("m", nn.New("nn.Sequential"))
	for i := 0; i < n; i++ {
		bn, err := b.bottleneck(c, c, g, 1.0, inherited)
		if err != nil {
			return nil, err
		}
		seq.AddChild(strconv.Itoa(i), bn)
	}
	return m, nil
}

// spp covers both SPP (several pooling kernels) and SPPF (one kernel applied
// three times, equivalent to four concatenated branches).
func (b *builder) spp(typ string, c1, c2, branches int, inherited bool) (*nn.Module, error) {
	c := c1 / 2
	m := nn.New(typ)
	cv1, err := b.conv("Conv", c1, c, 1, 1, 1, b.wants("Conv", inherited))
	if err != nil {
		return nil, err
	}
	cv2, err := b.conv("Conv", c*branches, c2, 1, 1, 1, b.wants("Conv", inherited))
	if err != nil {
		return nil, err
	}
	m.AddChild("cv1", cv1)
	m.AddChild("cv2", cv2)
	return m, nil
}

func (b *builder) focus(c1, c2, k, s, g int, inherited bool) (*nn.Module, error) {
	cv, err := b.conv("Conv", c1*4, c2, k, s, g, b.wants("Conv", inherited))
	if err != nil {
		return nil, err
	}
	m := nn.New("Focus")
	m.AddChild("conv", cv)
	return m, nil
}

// detect builds one biased 1x1 output convolution per detection level.
func (b *builder) detect(nc, na int, chs []int, adapter bool) (*nn.Module, error) {
	if na <= 0 {
		return nil, fmt.Errorf("detect: anchors per level must be positive, got %d", na)
	}
	no := nc + 5
	m := nn.New("Detect", nn.CapDetect)
	list := m.AddChild("m", nn.New("nn.ModuleList"))
	for i, c := range chs {
		cv, err := b.conv2d(nn.ConvSpec{In: c, Out: no * na, Kernel: 1, Bias: true}, adapter)
		if err != nil {
			return nil, err
		}
		list.AddChild(strconv.Itoa(i), cv)
	}
	return m, nil
}
