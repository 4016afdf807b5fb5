package hfsm

import "sort"

// Data is a string-keyed slot store attached to the machine, a state, a
// transition, or the transition currently in flight. Use GetAs/TryGetAs or a
// typed Key for type-safe access.
type Data struct {
	slots map[string]any
}

// NewData creates an empty store
func NewData() *Data {
	return &Data{slots: make(map[string]any)}
}

// Set stores a value under key, replacing any previous value
func (d *Data) Set(key string, value any) {
	if d.slots == nil {
		d.slots = make(map[string]any)
	}
	d.slots[key] = value
}

// Get retrieves a value
func (d *Data) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	value, exists := d.slots[key]
	return value, exists
}

// Has reports whether key holds a value
func (d *Data) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key
func (d *Data) Delete(key string) {
	if d == nil {
		return
	}
	delete(d.slots, key)
}

// Clear removes every slot
func (d *Data) Clear() {
	if d == nil {
		return
	}
	clear(d.slots)
}

// Len returns the number of stored slots
func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.slots)
}

// Keys returns the stored keys in sorted order
func (d *Data) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.slots))
	for k := range d.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAll returns a copy of every slot
func (d *Data) GetAll() map[string]any {
	result := make(map[string]any, d.Len())
	if d == nil {
		return result
	}
	for k, v := range d.slots {
		result[k] = v
	}
	return result
}

// clone returns a shallow copy, nil for an empty store
func (d *Data) clone() *Data {
	if d.Len() == 0 {
		return nil
	}
	return &Data{slots: d.GetAll()}
}

// GetAs returns the value under key converted to T, or T's zero value when the
// slot is missing or holds another type.
func GetAs[T any](d *Data, key string) T {
	value, _ := TryGetAs[T](d, key)
	return value
}

// TryGetAs returns the value under key converted to T
func TryGetAs[T any](d *Data, key string) (T, bool) {
	var zero T
	raw, ok := d.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Key is a typed slot name. Declaring one Key per payload type gives
// one-instance-per-type storage without reflection:
//
//	var HealthKey = hfsm.NewKey[int]("health")
//	HealthKey.Set(m.Data(), 100)
type Key[T any] struct {
	name string
}

// NewKey creates a typed key
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the underlying slot name
func (k Key[T]) Name() string {
	return k.name
}

// Set stores value in d
func (k Key[T]) Set(d *Data, value T) {
	d.Set(k.name, value)
}

// Get returns the value in d or T's zero value
func (k Key[T]) Get(d *Data) T {
	return GetAs[T](d, k.name)
}

// TryGet returns the value in d
func (k Key[T]) TryGet(d *Data) (T, bool) {
	return TryGetAs[T](d, k.name)
}

// Delete removes the slot from d
func (k Key[T]) Delete(d *Data) {
	d.Delete(k.name)
}
