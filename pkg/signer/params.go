package signer

import (
	"sort"
	"strings"
)

// Params holds request parameters keyed by their caller-facing name
// (item_id, ItemId, search_index, ...). A nil or empty slice means the
// parameter is omitted; several values are sent as one comma-joined value.
type Params map[string][]string

// Set stores a single value for key. An empty value removes the key.
func (p Params) Set(key, value string) {
	if value == "" {
		delete(p, key)
		return
	}
	p[key] = []string{value}
}

// SetList stores a sequence of values for key.
func (p Params) SetList(key string, values ...string) {
	if len(values) == 0 {
		delete(p, key)
		return
	}
	p[key] = append([]string(nil), values...)
}

// Get returns the comma-joined value for key, or "" when unset.
func (p Params) Get(key string) string {
	if p == nil {
		return ""
	}
	return strings.Join(p[key], ",")
}

// Lookup returns the value of the first key whose wire form matches
// wireKey, ignoring case.
func (p Params) Lookup(wireKey string) (string, bool) {
	for _, k := range p.sortedKeys() {
		if strings.EqualFold(WireKey(k), wireKey) {
			v := p.Get(k)
			return v, v != ""
		}
	}
	return "", false
}

// Del removes key.
func (p Params) Del(key string) {
	delete(p, key)
}

// DelWire removes every key rendering to wireKey, ignoring case.
func (p Params) DelWire(wireKey string) {
	for k := range p {
		if strings.EqualFold(WireKey(k), wireKey) {
			delete(p, k)
		}
	}
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Merge returns defaults overlaid with over. Keys are compared by their
// wire form, so item_id in over replaces ItemId in defaults.
func Merge(defaults, over Params) Params {
	out := defaults.Clone()
	for _, k := range over.sortedKeys() {
		out.DelWire(WireKey(k))
		out[k] = append([]string(nil), over[k]...)
	}
	return out
}

func (p Params) sortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
