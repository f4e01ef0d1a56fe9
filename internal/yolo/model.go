// Package yolo builds YOLOv5-style detection models from a description,
// injecting low-rank adapters where the description asks for them.
//
// Only the module tree and parameter shapes are produced. Channel arithmetic
// follows parse_model: depth and width multiples, make_divisible(8), C3 repeat
// folding, Concat channel sums and per-level Detect output convolutions.
package yolo

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/rs/zerolog"

	"loraverify/internal/description"
	"loraverify/internal/lora"
	"loraverify/internal/nn"
)

// zlog is the package logger; silent unless SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used while building.
func SetLogger(l zerolog.Logger) { zlog = l }

// inputVertex stands for the model input in the layer graph.
const inputVertex = -1

// Model is a built detection model.
type Model struct {
	// Root is the module tree; layers live under Root.model.<i>.
	Root *nn.Module
	Desc *description.Description
	// Channels holds each layer's output channel count.
	Channels []int
	// Save lists, in ascending order, layers whose output is consumed by a
	// layer other than the next one.
	Save []int

	deps graph.Graph[int, int]
}

// NumLayers returns the number of top-level layers.
func (m *Model) NumLayers() int { return len(m.Channels) }

// Layer returns top-level layer i, or nil when out of range.
func (m *Model) Layer(i int) *nn.Module {
	return m.Root.Lookup("model." + strconv.Itoa(i))
}

// Consumers returns the layers that take layer i's output as input, ascending.
func (m *Model) Consumers(i int) []int {
	adj, err := m.deps.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := make([]int, 0, len(adj[i]))
	for dst := range adj[i] {
		out = append(out, dst)
	}
	sort.Ints(out)
	return out
}

// Build constructs the model described by desc.
func Build(desc *description.Description) (*Model, error) {
	if desc == nil {
		return nil, buildError{layer: -1, err: errors.New("nil description")}
	}
	layers := desc.Layers()
	if len(layers) == 0 {
		return nil, buildError{layer: -1, err: errors.New("description has no layers")}
	}
	deps, err := layerGraph(layers)
	if err != nil {
		return nil, err
	}
	b := &builder{
		desc: desc,
		cfg: lora.Config{
			Rank:         desc.LoRA.R,
			Alpha:        desc.LoRA.Alpha,
			Dropout:      desc.LoRA.Dropout,
			MergeWeights: desc.LoRA.MergeWeights,
		},
	}
	seq := nn.New("nn.Sequential")
	chOut := make([]int, 0, len(layers))
	save := map[int]bool{}
	for i, l := range layers {
		b.layer = i
		in := func(f int) int {
			if idx := resolve(i, f); idx != inputVertex {
				return chOut[idx]
			}
			return desc.Ch
		}
		mod, c2, err := b.layerModule(l, in)
		if err != nil {
			return nil, buildError{layer: i, module: l.Module, err: err}
		}
		seq.AddChild(strconv.Itoa(i), mod)
		chOut = append(chOut, c2)
		for _, f := range l.From {
			if f != -1 {
				save[resolve(i, f)] = true
			}
		}
		zlog.Debug().Int("layer", i).Str("module", l.Module).Int("c2", c2).
			Int64("params", nn.Count(mod, nn.All)).Msg("layer built")
	}
	root := nn.New("Model")
	root.AddChild("model", seq)

	m := &Model{Root: root, Desc: desc, Channels: chOut, deps: deps}
	for idx := range save {
		m.Save = append(m.Save, idx)
	}
	sort.Ints(m.Save)
	for i := 0; i < len(layers)-1; i++ {
		if len(m.Consumers(i)) == 0 {
			zlog.Debug().Int("layer", i).Str("module", layers[i].Module).Msg("layer output is never consumed")
		}
	}
	return m, nil
}

// resolve turns a relative from-index into an absolute layer index.
func resolve(i, f int) int {
	if f < 0 {
		return i + f
	}
	return f
}

// layerGraph records which layer feeds which and rejects references to the
// current layer, later layers, or anything before the input.
func layerGraph(layers []description.Layer) (graph.Graph[int, int], error) {
	g := graph.New(graph.IntHash, graph.Directed(), graph.PreventCycles())
	if err := g.AddVertex(inputVertex); err != nil {
		return nil, buildError{layer: -1, err: err}
	}
	for i := range layers {
		if err := g.AddVertex(i); err != nil {
			return nil, buildError{layer: i, module: layers[i].Module, err: err}
		}
	}
	for i, l := range layers {
		for _, f := range l.From {
			src := resolve(i, f)
			if src >= i || src < inputVertex || (src == inputVertex && i != 0) {
				return nil, buildError{layer: i, module: l.Module,
					err: fmt.Errorf("from %d refers to layer %d, want an earlier layer", f, src)}
			}
			if err := g.AddEdge(src, i); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, buildError{layer: i, module: l.Module, err: err}
			}
		}
	}
	return g, nil
}

// makeDivisible rounds x up to the nearest multiple of d.
func makeDivisible(x float64, d int) int {
	return int(math.Ceil(x/float64(d))) * d
}

// repeats scales a layer's repeat count by the depth multiple.
func repeats(n int, gd float64) int {
	if n <= 1 {
		return n
	}
	return max(int(math.RoundToEven(float64(n)*gd)), 1)
}

// layerModule builds one top-level layer and returns it with its output channel count.
func (b *builder) layerModule(l description.Layer, in func(int) int) (*nn.Module, int, error) {
	d := b.desc
	n := repeats(l.Number, d.DepthMultiple)
	args := l.Args
	var (
		c2    int
		build func() (*nn.Module, error)
	)
	switch l.Module {
	case "Conv", "LoRAConv", "Bottleneck", "C3", "SPP", "SPPF", "Focus":
		if len(args) == 0 {
			return nil, 0, errors.New("missing output channels argument")
		}
		c1 := in(l.From[0])
		var err error
		if c2, err = evalChannels(args[0], d.NC); err != nil {
			return nil, 0, err
		}
		if c2 != d.Anchors.NumPerLevel()*(d.NC+5) {
			c2 = makeDivisible(float64(c2)*d.WidthMultiple, 8)
		}
		inh := b.wants(l.Module, false)
		if build, err = b.convLike(l.Module, c1, c2, n, args, inh); err != nil {
			return nil, 0, err
		}
		if l.Module == "C3" {
			n = 1
		}
	case "nn.Upsample", "nn.Identity":
		c2 = in(l.From[0])
		build = func() (*nn.Module, error) { return nn.New(l.Module), nil }
	case "Concat":
		for _, f := range l.From {
			c2 += in(f)
		}
		build = func() (*nn.Module, error) { return nn.New("Concat"), nil }
	case "Detect":
		chs := make([]int, len(l.From))
		for j, f := range l.From {
			chs[j] = in(f)
		}
		nc, na, err := b.detectArgs(args, len(chs))
		if err != nil {
			return nil, 0, err
		}
		c2 = na * (nc + 5)
		adapter := b.wants("Detect", false)
		build = func() (*nn.Module, error) { return b.detect(nc, na, chs, adapter) }
	default:
		return nil, 0, fmt.Errorf("unknown module %q", l.Module)
	}

	if n <= 1 {
		m, err := build()
		return m, c2, err
	}
	seq := nn.New("nn.Sequential")
	for j := 0; j < n; j++ {
		m, err := build()
		if err != nil {
			return nil, 0, err
		}
		seq.AddChild(strconv.Itoa(j), m)
	}
	return seq, c2, nil
}

// convLike parses the remaining arguments of a Conv-family layer and returns
// a constructor for one instance.
func (b *builder) convLike(typ string, c1, c2, n int, args []any, inh bool) (func() (*nn.Module, error), error) {
	switch typ {
	case "Conv", "LoRAConv":
		k, err := argInt(args, 1, 1)
		if err != nil {
			return nil, err
		}
		s, err := argInt(args, 2, 1)
		if err != nil {
			return nil, err
		}
		g, err := argInt(args, 4, 1)
		if err != nil {
			return nil, err
		}
		adapter := typ == "LoRAConv" || b.wants("Conv", inh)
		return func() (*nn.Module, error) { return b.conv(typ, c1, c2, k, s, g, adapter) }, nil
	case "Bottleneck", "C3":
		if _, err := argBool(args, 1, true); err != nil {
			return nil, err
		}
		g, err := argInt(args, 2, 1)
		if err != nil {
			return nil, err
		}
		e, err := argFloat(args, 3, 0.5)
		if err != nil {
			return nil, err
		}
		if typ == "C3" {
			return func() (*nn.Module, error) { return b.c3(c1, c2, n, g, e, inh) }, nil
		}
		return func() (*nn.Module, error) { return b.bottleneck(c1, c2, g, e, inh) }, nil
	case "SPP":
		ks, err := argInts(args, 1, []int{5, 9, 13})
		if err != nil {
			return nil, err
		}
		return func() (*nn.Module, error) { return b.spp("SPP", c1, c2, len(ks)+1, inh) }, nil
	case "SPPF":
		if _, err := argInt(args, 1, 5); err != nil {
			return nil, err
		}
		return func() (*nn.Module, error) { return b.spp("SPPF", c1, c2, 4, inh) }, nil
	case "Focus":
		k, err := argInt(args, 1, 1)
		if err != nil {
			return nil, err
		}
		s, err := argInt(args, 2, 1)
		if err != nil {
			return nil, err
		}
		g, err := argInt(args, 4, 1)
		if err != nil {
			return nil, err
		}
		return func() (*nn.Module, error) { return b.focus(c1, c2, k, s, g, inh) }, nil
	}
	return nil, fmt.Errorf("unknown module %q", typ)
}

// detectArgs resolves Detect's [nc, anchors] arguments for the given number of levels.
func (b *builder) detectArgs(args []any, levels int) (nc, na int, err error) {
	nc = b.desc.NC
	if len(args) > 0 {
		if s, ok := args[0].(string); !ok || s != "nc" {
			v, ok := description.AsInt(args[0])
			if !ok || v <= 0 {
				return 0, 0, fmt.Errorf("detect: class count must be a positive integer, got %v", args[0])
			}
			nc = v
		}
	}
	anchors := b.desc.Anchors
	if len(args) > 1 {
		switch v := args[1].(type) {
		case string:
			if v != "anchors" {
				return 0, 0, fmt.Errorf("detect: unknown anchors reference %q", v)
			}
		case []any:
			anchors = description.Anchors{PerLevel: 0}
			for _, lv := range v {
				row, ok := lv.([]any)
				if !ok || len(row) == 0 || len(row)%2 != 0 {
					return 0, 0, errors.New("detect: anchors must be even-length lists")
				}
				anchors.Levels = append(anchors.Levels, make([]float64, len(row)))
			}
		default:
			k, ok := description.AsInt(v)
			if !ok {
				return 0, 0, fmt.Errorf("detect: anchors must be a count or a list, got %v", v)
			}
			anchors = description.Anchors{PerLevel: k}
		}
	}
	if len(anchors.Levels) > 0 && len(anchors.Levels) != levels {
		return 0, 0, fmt.Errorf("detect: %d anchor levels for %d inputs", len(anchors.Levels), levels)
	}
	return nc, anchors.NumPerLevel(), nil
}
