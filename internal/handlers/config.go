package handlers

import (
	"fmt"
	"time"
)

// ConfigString returns a string config value, or def when the key is absent.
func (r *Request) ConfigString(key, def string) (string, error) {
	v, ok := r.Action.Config[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config '%s' of action '%s' must be a string, got %T", key, r.Action.Name, v)
	}
	return s, nil
}

// RequiredConfig returns a non-empty string config value.
func (r *Request) RequiredConfig(key string) (string, error) {
	s, err := r.ConfigString(key, "")
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("config '%s' of action '%s' is required", key, r.Action.Name)
	}
	return s, nil
}

// ConfigStrings returns a list of strings. A single string is accepted as a list
// of one.
func (r *Request) ConfigStrings(key string) ([]string, error) {
	v, ok := r.Action.Config[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("config '%s[%d]' of action '%s' must be a string, got %T", key, i, r.Action.Name, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("config '%s' of action '%s' must be a list of strings, got %T", key, r.Action.Name, v)
}

// ConfigStringMap returns a map of strings.
func (r *Request) ConfigStringMap(key string) (map[string]string, error) {
	v, ok := r.Action.Config[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("config '%s.%s' of action '%s' must be a string, got %T", key, k, r.Action.Name, item)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("config '%s' of action '%s' must be a map of strings, got %T", key, r.Action.Name, v)
}

// Duration parses a duration such as "90s". Numbers are taken as seconds.
func Duration(config map[string]any, key string, def time.Duration) (time.Duration, error) {
	v, ok := config[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("config '%s': %w", key, err)
		}
		return d, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case int:
		return time.Duration(t) * time.Second, nil
	}
	return 0, fmt.Errorf("config '%s' must be a duration, got %T", key, v)
}

// FirstInput returns the directory of the first declared input.
func (r *Request) FirstInput() (string, bool) {
	if len(r.Action.Inputs) == 0 {
		return "", false
	}
	dir, ok := r.Inputs[r.Action.Inputs[0].ID]
	return dir, ok
}

// FirstOutput returns the directory of the first declared output.
func (r *Request) FirstOutput() (string, bool) {
	if len(r.Action.Outputs) == 0 {
		return "", false
	}
	dir, ok := r.Outputs[r.Action.Outputs[0].ID]
	return dir, ok
}
