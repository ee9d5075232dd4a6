package memo

import "reflect"

// slot is the internal map key. Real keys always have absent == false, so the
// absent slot cannot be reached by any caller-supplied key.
type slot[K comparable] struct {
	key    K
	absent bool
}

// slotFor maps key to its slot. Only the untyped nil interface is the absent
// key; typed nils are ordinary keys and keep their own entries.
func slotFor[K comparable](key K) slot[K] {
	if any(key) == nil {
		return slot[K]{absent: true}
	}
	return slot[K]{key: key}
}

// isAbsent reports whether a computed value v is nil or a typed nil.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Interface,
		reflect.Slice, reflect.Func, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}
