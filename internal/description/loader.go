package description

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a description file based on its extension and fills defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (*Description, error) {
	if path == "" {
		return nil, ErrNotFound("(empty path)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound(path)
		}
		return nil, parseError{path: path, msg: "read", err: err}
	}
	raw, err := decode(path, b)
	if err != nil {
		return nil, err
	}
	d, err := FromMap(raw)
	if err != nil {
		var pe parseError
		if errors.As(err, &pe) && pe.path == "" {
			pe.path = path
			return nil, pe
		}
		return nil, err
	}
	d.Path = path
	return d, nil
}

func decode(path string, b []byte) (map[string]any, error) {
	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, parseError{path: path, msg: "yaml", err: err}
		}
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, parseError{path: path, msg: "json", err: err}
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return nil, parseError{path: path, msg: "toml", err: err}
		}
	default:
		return nil, parseError{path: path, msg: fmt.Sprintf("unsupported extension %q", ext)}
	}
	if raw == nil {
		return nil, parseError{path: path, msg: "document is empty or not a mapping"}
	}
	return raw, nil
}

// FromMap converts a decoded document into a Description, applying defaults
// for absent optional keys.
func FromMap(raw map[string]any) (*Description, error) {
	d := &Description{
		NC:            DefaultNC,
		DepthMultiple: DefaultDepthMultiple,
		WidthMultiple: DefaultWidthMultiple,
		Anchors:       Anchors{PerLevel: DefaultAnchorsPerLevel},
		Ch:            DefaultChannels,
		LoRA:          LoRA{Alpha: DefaultLoRAAlpha, MergeWeights: true},
	}
	var err error
	if v, ok := raw["nc"]; ok {
		if d.NC, err = positiveInt("nc", v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["ch"]; ok {
		if d.Ch, err = positiveInt("ch", v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["depth_multiple"]; ok {
		if d.DepthMultiple, err = positiveFloat("depth_multiple", v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["width_multiple"]; ok {
		if d.WidthMultiple, err = positiveFloat("width_multiple", v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["anchors"]; ok && v != nil {
		if d.Anchors, err = parseAnchors(v); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["lora"]; ok && v != nil {
		if err := parseLoRA(v, &d.LoRA); err != nil {
			return nil, err
		}
	}
	if d.Backbone, err = parseLayers("backbone", raw["backbone"]); err != nil {
		return nil, err
	}
	if d.Head, err = parseLayers("head", raw["head"]); err != nil {
		return nil, err
	}
	return d, nil
}

func parseAnchors(v any) (Anchors, error) {
	if n, ok := asInt(v); ok {
		if n <= 0 {
			return Anchors{}, parseError{msg: fmt.Sprintf("anchors: count must be positive, got %d", n)}
		}
		return Anchors{PerLevel: n}, nil
	}
	levels, ok := v.([]any)
	if !ok || len(levels) == 0 {
		return Anchors{}, parseError{msg: "anchors: expected a count or a list of levels"}
	}
	var a Anchors
	for i, lv := range levels {
		row, ok := lv.([]any)
		if !ok || len(row) == 0 || len(row)%2 != 0 {
			return Anchors{}, parseError{msg: fmt.Sprintf("anchors[%d]: expected an even-length list of sizes", i)}
		}
		sizes := make([]float64, len(row))
		for j, x := range row {
			f, ok := asFloat(x)
			if !ok {
				return Anchors{}, parseError{msg: fmt.Sprintf("anchors[%d][%d]: not a number", i, j)}
			}
			sizes[j] = f
		}
		if i > 0 && len(sizes) != len(a.Levels[0]) {
			return Anchors{}, parseError{msg: fmt.Sprintf("anchors[%d]: %d sizes, level 0 has %d", i, len(sizes), len(a.Levels[0]))}
		}
		a.Levels = append(a.Levels, sizes)
	}
	a.PerLevel = len(a.Levels[0]) / 2
	return a, nil
}

func parseLoRA(v any, l *LoRA) error {
	m, ok := v.(map[string]any)
	if !ok {
		return parseError{msg: "lora: expected a mapping"}
	}
	if x, ok := m["r"]; ok {
		r, ok := asInt(x)
		if !ok || r < 0 {
			return parseError{msg: "lora.r: expected a non-negative integer"}
		}
		l.R = r
	}
	if x, ok := m["lora_alpha"]; ok {
		f, ok := asFloat(x)
		if !ok {
			return parseError{msg: "lora.lora_alpha: not a number"}
		}
		l.Alpha = f
	}
	if x, ok := m["lora_dropout"]; ok {
		f, ok := asFloat(x)
		if !ok || f < 0 || f >= 1 {
			return parseError{msg: "lora.lora_dropout: expected a number in [0,1)"}
		}
		l.Dropout = f
	}
	if x, ok := m["merge_weights"]; ok {
		b, ok := x.(bool)
		if !ok {
			return parseError{msg: "lora.merge_weights: expected a boolean"}
		}
		l.MergeWeights = b
	}
	if x, ok := m["targets"]; ok && x != nil {
		list, ok := x.([]any)
		if !ok {
			return parseError{msg: "lora.targets: expected a list of layer types"}
		}
		for i, t := range list {
			s, ok := t.(string)
			if !ok {
				return parseError{msg: fmt.Sprintf("lora.targets[%d]: expected a string", i)}
			}
			l.Targets = append(l.Targets, s)
		}
	}
	if x, ok := m["layers"]; ok && x != nil {
		idx, _, err := intList("lora.layers", x)
		if err != nil {
			return err
		}
		l.Layers = idx
	}
	return nil
}

func parseLayers(section string, v any) ([]Layer, error) {
	if v == nil {
		return nil, parseError{msg: section + ": missing"}
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, parseError{msg: section + ": expected a list of layers"}
	}
	out := make([]Layer, 0, len(rows))
	for i, r := range rows {
		where := fmt.Sprintf("%s[%d]", section, i)
		row, ok := r.([]any)
		if !ok || len(row) != 4 {
			return nil, parseError{msg: where + ": expected [from, number, module, args]"}
		}
		from, multi, err := intList(where+".from", row[0])
		if err != nil {
			return nil, err
		}
		n, ok := asInt(row[1])
		if !ok || n < 1 {
			return nil, parseError{msg: where + ".number: expected a positive integer"}
		}
		mod, ok := row[2].(string)
		if !ok || mod == "" {
			return nil, parseError{msg: where + ".module: expected a module name"}
		}
		var args []any
		switch a := row[3].(type) {
		case nil:
		case []any:
			args = a
		default:
			return nil, parseError{msg: where + ".args: expected a list"}
		}
		out = append(out, Layer{From: from, MultiFrom: multi, Number: n, Module: mod, Args: args})
	}
	return out, nil
}

// intList accepts a single integer or a list of integers.
func intList(where string, v any) ([]int, bool, error) {
	if n, ok := asInt(v); ok {
		return []int{n}, false, nil
	}
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false, parseError{msg: where + ": expected an integer or a list of integers"}
	}
	out := make([]int, len(list))
	for i, x := range list {
		n, ok := asInt(x)
		if !ok {
			return nil, false, parseError{msg: fmt.Sprintf("%s[%d]: expected an integer", where, i)}
		}
		out[i] = n
	}
	return out, true, nil
}

func positiveInt(key string, v any) (int, error) {
	n, ok := asInt(v)
	if !ok || n <= 0 {
		return 0, parseError{msg: key + ": expected a positive integer"}
	}
	return n, nil
}

func positiveFloat(key string, v any) (float64, error) {
	f, ok := asFloat(v)
	if !ok || f <= 0 {
		return 0, parseError{msg: key + ": expected a positive number"}
	}
	return f, nil
}

// asInt accepts the integer representations produced by the yaml, json and toml
// decoders. Floats are accepted only when integral.
func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int(x), true
		}
	}
	return 0, false
}

// AsInt exposes the decoder-agnostic integer conversion to layer argument consumers.
func AsInt(v any) (int, bool) { return asInt(v) }

// AsFloat exposes the decoder-agnostic number conversion to layer argument consumers.
func AsFloat(v any) (float64, bool) { return asFloat(v) }

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
