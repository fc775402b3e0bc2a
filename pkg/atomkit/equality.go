package atomkit

import "reflect"

// strictEqual is reference-style equality: == for comparable dynamic
// types, pointer identity for slices, maps, funcs, and channels, and
// never-equal otherwise. It is the default predicate for atom values.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func, reflect.Chan:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// shallowEqual compares one level deep: pointers are dereferenced once,
// slices, arrays, and maps are compared element-wise with strictEqual,
// and everything else falls back to strictEqual.
func shallowEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Pointer:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return strictEqual(va.Elem().Interface(), vb.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !strictEqual(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !strictEqual(iter.Value().Interface(), other.Interface()) {
				return false
			}
		}
		return true
	}
	return strictEqual(a, b)
}

// EqualsStrict returns the strict equality predicate for T.
func EqualsStrict[T any]() func(a, b T) bool {
	return func(a, b T) bool { return strictEqual(a, b) }
}

// EqualsShallow returns the one-level equality predicate for T.
func EqualsShallow[T any]() func(a, b T) bool {
	return func(a, b T) bool { return shallowEqual(a, b) }
}

// EqualsDeep returns a predicate backed by reflect.DeepEqual.
func EqualsDeep[T any]() func(a, b T) bool {
	return func(a, b T) bool { return reflect.DeepEqual(a, b) }
}

// isZeroValue reports whether v is nil or its type's zero value.
func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return rv.IsZero()
}
