// Package derive defines the Derivable abstraction: a value that knows how to
// produce a domain value. Derivation is pure. Calling Derive twice on the same
// derivable yields equal results, and nested derivables are derived on demand.
package derive

// Derivable produces a domain value of type T.
type Derivable[T any] interface {
	Derive() T
}

// Nullable derives d, or returns the zero value when d is nil.
func Nullable[T any](d Derivable[T]) T {
	if d == nil {
		var zero T

		return zero
	}

	return d.Derive()
}

// All derives each element, preserving order. A nil slice derives to nil.
func All[T any, D Derivable[T]](ds []D) []T {
	if ds == nil {
		return nil
	}

	out := make([]T, len(ds))
	for i, d := range ds {
		out[i] = d.Derive()
	}

	return out
}
