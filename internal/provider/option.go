package provider

import "sync/atomic"

// Option is a named boolean hint setting.
type Option struct {
	// ID is a stable key, e.g. "java.show.for.non.literals".
	ID string
	// Name is the label shown to the user.
	Name string

	value        atomic.Bool
	defaultValue bool
}

// NewOption returns an option initialised to def.
func NewOption(id, name string, def bool) *Option {
	o := &Option{ID: id, Name: name, defaultValue: def}
	o.value.Store(def)
	return o
}

// Get returns the current value.
func (o *Option) Get() bool {
	return o.value.Load()
}

// Set changes the current value.
func (o *Option) Set(v bool) {
	o.value.Store(v)
}

// Default returns the value the option started with.
func (o *Option) Default() bool {
	return o.defaultValue
}
