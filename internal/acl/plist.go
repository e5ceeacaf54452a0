package acl

// PList is an ordered-key property list used for the subject and resource
// fact containers and for authentication info bags. Keys keep their first
// insertion position, later inserts overwrite the value, deletion of an
// absent key is a no-op.
type PList struct {
	keys []string
	vals map[string]any
}

// NewPList creates an empty property list.
func NewPList() *PList {
	return &PList{vals: make(map[string]any)}
}

// Set inserts or overwrites the value for key.
func (p *PList) Set(key string, val any) {
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = val
}

// Get returns the value for key.
func (p *PList) Get(key string) (any, bool) {
	v, ok := p.vals[key]
	return v, ok
}

// GetString returns the value for key as a string, or "" if the key is
// absent or the value is not a string.
func (p *PList) GetString(key string) string {
	if v, ok := p.vals[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Has reports whether key is present.
func (p *PList) Has(key string) bool {
	_, ok := p.vals[key]
	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (p *PList) Delete(key string) {
	if _, ok := p.vals[key]; !ok {
		return
	}
	delete(p.vals, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (p *PList) Len() int {
	return len(p.keys)
}

// Keys returns the keys in insertion order.
func (p *PList) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Range calls fn for every entry in insertion order until fn returns false.
func (p *PList) Range(fn func(key string, val any) bool) {
	for _, k := range p.keys {
		if !fn(k, p.vals[k]) {
			return
		}
	}
}

// Clone returns a shallow copy of the list.
func (p *PList) Clone() *PList {
	c := &PList{
		keys: make([]string, len(p.keys)),
		vals: make(map[string]any, len(p.vals)),
	}
	copy(c.keys, p.keys)
	for k, v := range p.vals {
		c.vals[k] = v
	}
	return c
}
