package provider

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortedKeys returns the keys of params in ascending byte order
func SortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JoinSorted sorts keys ascending and joins key+kvSep+value pairs with pairSep.
// Pairs for which skip returns true are left out.
func JoinSorted(params map[string]string, kvSep, pairSep string, skip func(key, value string) bool) string {
	var b strings.Builder
	first := true
	for _, k := range SortedKeys(params) {
		v := params[k]
		if skip != nil && skip(k, v) {
			continue
		}
		if !first {
			b.WriteString(pairSep)
		}
		first = false
		b.WriteString(k)
		b.WriteString(kvSep)
		b.WriteString(v)
	}
	return b.String()
}

// SkipKeys skips the named keys
func SkipKeys(keys ...string) func(key, value string) bool {
	return func(key, _ string) bool {
		for _, k := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
}

// SkipEmptyAndKeys skips empty values and the named keys
func SkipEmptyAndKeys(keys ...string) func(key, value string) bool {
	named := SkipKeys(keys...)
	return func(key, value string) bool {
		return value == "" || named(key, value)
	}
}

// StripSlashes removes backslash escapes; an escaped backslash becomes one backslash
func StripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			if i < len(s) {
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// FormatMajor converts minor units into a two-decimal major amount, 12345 -> "123.45"
func FormatMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// FormParam is one key/value pair of an ordered form body
type FormParam struct {
	Key   string
	Value string
}

// OrderedForm is a form body that keeps insertion order and repeated keys
type OrderedForm []FormParam

// Add appends a pair
func (f *OrderedForm) Add(key, value string) {
	*f = append(*f, FormParam{Key: key, Value: value})
}

// Get returns the first value for key
func (f OrderedForm) Get(key string) string {
	for _, p := range f {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Map returns the pairs as a map, last value wins
func (f OrderedForm) Map() map[string]string {
	out := make(map[string]string, len(f))
	for _, p := range f {
		out[p.Key] = p.Value
	}
	return out
}

var bracketUnescaper = strings.NewReplacer("%5B", "[", "%5D", "]")

// Encode renders key=value pairs in order. Array brackets in keys stay literal,
// so methods[] is sent as methods[]=a&methods[]=b.
func (f OrderedForm) Encode() string {
	var b strings.Builder
	for i, p := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(bracketUnescaper.Replace(url.QueryEscape(p.Key)))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
