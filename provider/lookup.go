package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Lookup walks a dotted path ("data.payUrl") through nested JSON objects.
// A numeric segment indexes an array: "purchase_units.0.reference_id".
func Lookup(obj map[string]any, path string) (any, bool) {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

// StringAt returns the scalar at path rendered as a string, or ""
func StringAt(obj map[string]any, path string) string {
	v, ok := Lookup(obj, path)
	if !ok {
		return ""
	}
	return ScalarString(v)
}

// ObjectAt returns the object at path, or nil
func ObjectAt(obj map[string]any, path string) map[string]any {
	v, ok := Lookup(obj, path)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// FirstString tries paths in order and returns the first present, non-empty value
func FirstString(obj map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := StringAt(obj, p); s != "" {
			return s
		}
	}
	return ""
}

// FirstPresent tries paths in order and returns the first value that is not null
func FirstPresent(obj map[string]any, paths ...string) (any, bool) {
	for _, p := range paths {
		if v, ok := Lookup(obj, p); ok {
			return v, true
		}
	}
	return nil, false
}

// ScalarString renders a decoded JSON scalar as a string; objects and arrays become ""
func ScalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// DecodeJSONObject decodes body as a JSON object with json.Number numbers
func DecodeJSONObject(body []byte) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// CodeSet is a strict set of status codes. Strings and numbers are distinct:
// "200" does not match 200.
type CodeSet struct {
	strs map[string]struct{}
	nums map[int64]struct{}
}

// NewCodeSet builds a set from string and integer members
func NewCodeSet(members ...any) CodeSet {
	s := CodeSet{strs: map[string]struct{}{}, nums: map[int64]struct{}{}}
	for _, m := range members {
		switch t := m.(type) {
		case string:
			s.strs[t] = struct{}{}
		case int:
			s.nums[int64(t)] = struct{}{}
		case int64:
			s.nums[t] = struct{}{}
		}
	}
	return s
}

// Contains reports whether v, as decoded from JSON or a form, is a member
func (s CodeSet) Contains(v any) bool {
	switch t := v.(type) {
	case string:
		_, ok := s.strs[t]
		return ok
	case json.Number:
		if n, err := t.Int64(); err == nil {
			_, ok := s.nums[n]
			return ok
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			_, ok := s.nums[int64(f)]
			return ok
		}
	case float64:
		if t == float64(int64(t)) {
			_, ok := s.nums[int64(t)]
			return ok
		}
	case int:
		_, ok := s.nums[int64(t)]
		return ok
	case int64:
		_, ok := s.nums[t]
		return ok
	}
	return false
}

// DefaultSuccessCodes are the codes treated as success by code-style APIs
var DefaultSuccessCodes = NewCodeSet("0", 0, "SUCCESS", "success", "OK", 200)
