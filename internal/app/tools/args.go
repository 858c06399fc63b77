package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
)

var errInvalidArguments = &domain.Error{Kind: domain.KindInvalid, Message: "invalid arguments"}

func invalidArg(tool domain.ToolName, format string, args ...any) error {
	return domain.NewError(domain.KindInvalid, string(tool), fmt.Sprintf(format, args...), nil)
}

// getInt reads an integral number. Models send numbers as float64, but
// json.Number, ints and numeric strings are accepted too.
func getInt(tool domain.ToolName, m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, invalidArg(tool, "missing %s", key)
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, invalidArg(tool, "%s is not a number", key)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, invalidArg(tool, "%s is not a number", key)
		}
		f = parsed
	default:
		return 0, invalidArg(tool, "%s has unsupported type %T", key, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, invalidArg(tool, "%s must be an integer", key)
	}
	return int(f), nil
}

func getString(tool domain.ToolName, m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", invalidArg(tool, "missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidArg(tool, "%s must be a string", key)
	}
	return s, nil
}
