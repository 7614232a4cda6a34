package orders

// AlignToCount returns exactly count items. Longer input is truncated and
// shorter input is padded by repeating its first element. When items is
// empty the result is fallback repeated count times, or nil if fallback is
// the zero value.
func AlignToCount[T comparable](items []T, count int, fallback T) []T {
	if count < 1 {
		return nil
	}
	var zero T
	if len(items) == 0 {
		if fallback == zero {
			return nil
		}
		items = []T{fallback}
	}

	out := make([]T, count)
	n := copy(out, items)
	for i := n; i < count; i++ {
		out[i] = items[0]
	}
	return out
}
