package abstraction

import (
	"fmt"
	"time"
)

// StringProperty reads a string property. A missing optional property yields "".
func StringProperty(properties map[string]interface{}, key string, required bool) (string, error) {
	raw, ok := properties[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s is required", key)
		}
		return "", nil
	}

	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s should be string", key)
	}
	return value, nil
}

// IntProperty reads an integer property, falling back to def when absent.
func IntProperty(properties map[string]interface{}, key string, def int) (int, error) {
	raw, ok := properties[key]
	if !ok {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s should be integer", key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s should be integer", key)
	}
}

// DurationProperty reads a duration written as "30s", "5m", ...
func DurationProperty(properties map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	raw, ok := properties[key]
	if !ok {
		return def, nil
	}

	str, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%s should be duration string", key)
	}

	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("%s is invalid: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s should be positive", key)
	}
	return d, nil
}

// StringListProperty reads a YAML sequence of strings.
func StringListProperty(properties map[string]interface{}, key string) ([]string, error) {
	raw, ok := properties[key]
	if !ok {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s should be list of string", key)
			}
			values = append(values, s)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%s should be list of string", key)
	}
}
