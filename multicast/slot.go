package multicast

import (
	"fmt"
	"reflect"
	"unsafe"
	"weak"
)

// key identifies an observer by its dynamic pointer type and the address it
// was registered with. Weak pointers made from the same pointer compare
// equal even after the referent is reclaimed, so a key stays valid for as
// long as the slot holding it exists.
type key struct {
	typ reflect.Type
	ptr weak.Pointer[byte]
}

// slot is a non-owning reference to a registered observer.
type slot[T any] struct {
	key key
}

// keyOf returns the identity key of o. ok is false when o is nil (an untyped
// nil interface or a typed nil pointer) or cannot be referenced weakly; err
// explains the latter.
func keyOf(o any) (k key, ok bool, err error) {
	rv := reflect.ValueOf(o)
	if !rv.IsValid() {
		return k, false, nil
	}
	if rv.Kind() != reflect.Pointer {
		return k, false, fmt.Errorf("observer of type %s is not a pointer", rv.Type())
	}
	if rv.IsNil() {
		return k, false, nil
	}
	if rv.Type().Elem().Size() == 0 {
		return k, false, fmt.Errorf("observer of type %s points to a zero-size value", rv.Type())
	}
	return key{typ: rv.Type(), ptr: weak.Make((*byte)(rv.UnsafePointer()))}, true, nil
}

// makeSlot builds a slot for o. ok is false when o is nil. Observers that
// cannot be referenced weakly are a caller bug and panic.
func makeSlot[T any](o T) (slot[T], bool) {
	k, ok, err := keyOf(o)
	if err != nil {
		panic("multicast: " + err.Error() + " and cannot be referenced weakly")
	}
	return slot[T]{key: k}, ok
}

// resolve returns a strong reference to the observer, or false if it has
// been reclaimed.
func (s slot[T]) resolve() (T, bool) {
	var zero T
	p := s.key.ptr.Value()
	if p == nil {
		return zero, false
	}
	o, ok := reflect.NewAt(s.key.typ.Elem(), unsafe.Pointer(p)).Interface().(T)
	if !ok {
		return zero, false
	}
	return o, true
}

// Weakable reports whether v can be registered as an observer: it must be a
// non-nil pointer to a value of non-zero size. Pointers to package-level
// variables qualify but are never reclaimed, so they stay registered until
// removed.
func Weakable(v any) bool {
	_, ok, _ := keyOf(v)
	return ok
}
