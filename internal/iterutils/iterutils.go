// Iterator helpers
package iterutils

import "iter"

// Turns a Seq into a Seq2 where the second element is always nil
func WithoutErrors[V any](seq iter.Seq[V]) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				break
			}
		}
	}
}

// Collects values from a Seq2 until the first error
func Collect[V any](seq iter.Seq2[V, error]) ([]V, error) {
	values := []V{}
	for v, err := range seq {
		if err != nil {
			return values, err
		}

		values = append(values, v)
	}

	return values, nil
}
