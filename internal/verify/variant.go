package verify

import (
	"fmt"
	"sort"
	"strings"
)

// Variant selects a preset threshold and default description path.
type Variant string

const (
	VariantIntegration Variant = "integration"
	VariantTest        Variant = "test"
)

// Preset holds the defaults of a variant.
type Preset struct {
	Threshold   float64
	DefaultPath string
}

var presets = map[Variant]Preset{
	VariantIntegration: {Threshold: 0.10, DefaultPath: "models/cfg/esod/visdrone_yolov5m_lora.yaml"},
	VariantTest:        {Threshold: 0.05, DefaultPath: "models/cfg/esod/visdrone_yolov5m_lora_test.yaml"},
}

// DefaultVariant is used when none is given.
const DefaultVariant = VariantIntegration

// LookupVariant resolves a variant name. Empty selects DefaultVariant.
func LookupVariant(name string) (Variant, Preset, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(name)))
	if v == "" {
		v = DefaultVariant
	}
	p, ok := presets[v]
	if !ok {
		return "", Preset{}, fmt.Errorf("unknown variant %q (want %s)", name, strings.Join(VariantNames(), "|"))
	}
	return v, p, nil
}

// VariantNames lists the known variants in sorted order.
func VariantNames() []string {
	out := make([]string, 0, len(presets))
	for v := range presets {
		out = append(out, string(v))
	}
	sort.Strings(out)
	return out
}
