package events

import (
	"fmt"

	"github.com/rileyhilliard/drbdmon/internal/errors"
)

// PropertyMap is the ordered set of key:value fields of one status-stream
// line. It is built per line and not retained after the line was applied.
type PropertyMap struct {
	keys   []string
	values map[string]string
}

// NewPropertyMap returns an empty map with room for n fields.
func NewPropertyMap(n int) *PropertyMap {
	return &PropertyMap{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Add inserts a field. A key that is already present is a protocol error.
func (p *PropertyMap) Add(key, value string) error {
	if _, dup := p.values[key]; dup {
		return errors.New(errors.ErrProtocol,
			fmt.Sprintf("Duplicate field %q", key), "")
	}
	p.keys = append(p.keys, key)
	p.values[key] = value
	return nil
}

// Get returns the raw value of key.
func (p *PropertyMap) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// First returns the value of the first key in keys that is present. Used where
// the producer has renamed a field between versions.
func (p *PropertyMap) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.values[k]; ok {
			return v, true
		}
	}
	return "", false
}

// Require returns the value of the first present key, or a protocol error
// naming the first key.
func (p *PropertyMap) Require(keys ...string) (string, error) {
	if v, ok := p.First(keys...); ok {
		return v, nil
	}
	return "", errors.New(errors.ErrProtocol,
		fmt.Sprintf("Missing required field %q", keys[0]), "")
}

// Keys returns the field names in line order.
func (p *PropertyMap) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of fields.
func (p *PropertyMap) Len() int {
	return len(p.keys)
}
