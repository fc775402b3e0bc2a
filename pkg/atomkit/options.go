package atomkit

// atomConfig collects the per-cell settings shared by mutable atoms,
// derived atoms, and events.
type atomConfig[T any] struct {
	equals   func(a, b T) bool
	fallback *T
	key      string
	meta     map[string]any
}

// AtomOption configures a cell at construction time.
type AtomOption[T any] func(*atomConfig[T])

// WithEquals overrides the equality predicate used to suppress
// redundant writes. The default compares with == for comparable kinds
// and by reference identity otherwise.
func WithEquals[T any](equals func(a, b T) bool) AtomOption[T] {
	return func(c *atomConfig[T]) { c.equals = equals }
}

// WithEqualsShallow compares one level deep: pointers by pointee,
// slices, arrays and maps elementwise.
func WithEqualsShallow[T any]() AtomOption[T] {
	return func(c *atomConfig[T]) { c.equals = EqualsShallow[T]() }
}

// WithEqualsDeep compares with reflect.DeepEqual.
func WithEqualsDeep[T any]() AtomOption[T] {
	return func(c *atomConfig[T]) { c.equals = EqualsDeep[T]() }
}

// WithFallback sets the value served while the cell is loading or in
// error before any resolution has happened, and enables stale
// reporting during those statuses.
func WithFallback[T any](v T) AtomOption[T] {
	return func(c *atomConfig[T]) { c.fallback = &v }
}

// WithKey attaches a stable debug key, surfaced to observers and
// devtools.
func WithKey[T any](key string) AtomOption[T] {
	return func(c *atomConfig[T]) { c.key = key }
}

// WithMeta attaches arbitrary metadata, surfaced to observers and
// devtools.
func WithMeta[T any](meta map[string]any) AtomOption[T] {
	return func(c *atomConfig[T]) { c.meta = meta }
}

func buildConfig[T any](opts []AtomOption[T]) atomConfig[T] {
	var c atomConfig[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}
