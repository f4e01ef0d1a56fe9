package yolo

import (
	"fmt"
	"strings"

	"loraverify/internal/description"
)

// isNone reports whether a layer argument is absent or written as None.
func isNone(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == "None"
}

func argInt(args []any, i, def int) (int, error) {
	if i >= len(args) || isNone(args[i]) {
		return def, nil
	}
	n, ok := description.AsInt(args[i])
	if !ok {
		return 0, fmt.Errorf("arg %d: expected an integer, got %v", i, args[i])
	}
	return n, nil
}

func argFloat(args []any, i int, def float64) (float64, error) {
	if i >= len(args) || isNone(args[i]) {
		return def, nil
	}
	f, ok := description.AsFloat(args[i])
	if !ok {
		return 0, fmt.Errorf("arg %d: expected a number, got %v", i, args[i])
	}
	return f, nil
}

func argBool(args []any, i int, def bool) (bool, error) {
	if i >= len(args) || isNone(args[i]) {
		return def, nil
	}
	switch v := args[i].(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("arg %d: expected a boolean, got %v", i, args[i])
}

func argInts(args []any, i int, def []int) ([]int, error) {
	if i >= len(args) || isNone(args[i]) {
		return def, nil
	}
	if n, ok := description.AsInt(args[i]); ok {
		return []int{n}, nil
	}
	list, ok := args[i].([]any)
	if !ok {
		return nil, fmt.Errorf("arg %d: expected a list of integers, got %v", i, args[i])
	}
	out := make([]int, len(list))
	for j, x := range list {
		n, ok := description.AsInt(x)
		if !ok {
			return nil, fmt.Errorf("arg %d[%d]: expected an integer, got %v", i, j, x)
		}
		out[j] = n
	}
	return out, nil
}

// evalChannels resolves the first Conv-like argument, which may be written as nc.
func evalChannels(v any, nc int) (int, error) {
	if s, ok := v.(string); ok && s == "nc" {
		return nc, nil
	}
	n, ok := description.AsInt(v)
	if !ok || n <= 0 {
		return 0, fmt.Errorf("output channels: expected a positive integer, got %v", v)
	}
	return n, nil
}
