// Package description loads declarative model descriptions: YOLOv5-style layer
// lists plus the low-rank adapter settings used when building the model.
package description

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Defaults applied when the corresponding keys are absent.
const (
	DefaultNC              = 80
	DefaultAnchorsPerLevel = 3
	DefaultDepthMultiple   = 1.0
	DefaultWidthMultiple   = 1.0
	DefaultChannels        = 3
	DefaultLoRAAlpha       = 1.0
)

// Layer is one [from, number, module, args] row of a backbone or head.
type Layer struct {
	// From lists the source layer indices; -1 is the previous layer.
	From []int
	// MultiFrom is set when From was written as a list.
	MultiFrom bool
	Number    int
	Module    string
	Args      []any
}

// Anchors is either a per-level anchor count or explicit anchor pairs per level.
type Anchors struct {
	PerLevel int
	Levels   [][]float64
}

// NumPerLevel returns the number of anchors at each detection level.
func (a Anchors) NumPerLevel() int {
	if len(a.Levels) > 0 {
		return len(a.Levels[0]) / 2
	}
	return a.PerLevel
}

// LoRA holds the adapter settings of a description.
type LoRA struct {
	R            int
	Alpha        float64
	Dropout      float64
	MergeWeights bool
	// Targets lists the layer types whose convolutions receive adapters.
	Targets []string
	// Layers optionally restricts injection to these top-level layer indices.
	Layers []int
}

// Targeted reports whether a module type is listed in Targets.
func (l LoRA) Targeted(module string) bool {
	for _, t := range l.Targets {
		if strings.EqualFold(t, module) {
			return true
		}
	}
	return false
}

// AllowsLayer reports whether the top-level layer index i may receive adapters.
func (l LoRA) AllowsLayer(i int) bool {
	if len(l.Layers) == 0 {
		return true
	}
	for _, x := range l.Layers {
		if x == i {
			return true
		}
	}
	return false
}

// Description is a loaded, defaulted model description. It is read-only after Load.
type Description struct {
	Path          string
	NC            int
	DepthMultiple float64
	WidthMultiple float64
	Anchors       Anchors
	Ch            int
	LoRA          LoRA
	Backbone      []Layer
	Head          []Layer
}

// Name is the file name without directory and extension.
func (d *Description) Name() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Layers returns backbone followed by head; indices match model layer indices.
func (d *Description) Layers() []Layer {
	out := make([]Layer, 0, len(d.Backbone)+len(d.Head))
	out = append(out, d.Backbone...)
	return append(out, d.Head...)
}

// AdapterEnabled reports whether building the description should inject any adapters.
func (d *Description) AdapterEnabled() bool {
	for _, l := range d.Layers() {
		if l.Module == "LoRAConv" {
			return true
		}
	}
	return d.LoRA.R > 0 && len(d.LoRA.Targets) > 0
}

func (d *Description) String() string {
	return fmt.Sprintf("%s (nc=%d depth=%.2f width=%.2f layers=%d lora.r=%d)",
		d.Name(), d.NC, d.DepthMultiple, d.WidthMultiple, len(d.Backbone)+len(d.Head), d.LoRA.R)
}
