// Package align merges two independently-sorted record sequences into a
// three-way per-key diff: present in both, left only, right only.
package align

// Entry pairs the records sharing one key value. A matched entry carries both
// sides; a one-sided entry leaves the other pointer nil.
type Entry[L, R any] struct {
	Left  *L
	Right *R
}

// Matched reports whether both sides are present.
func (e Entry[L, R]) Matched() bool {
	return e.Left != nil && e.Right != nil
}

// Merge runs a classic sorted merge over left and right. Both inputs must be
// sorted ascending by their key; the output holds one entry per distinct key
// across the union of inputs, and every input record appears in exactly one
// entry, preserving relative order.
func Merge[L, R any](left []L, right []R, leftKey func(L) string, rightKey func(R) string) []Entry[L, R] {
	var out []Entry[L, R]
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		lk, rk := leftKey(left[i]), rightKey(right[j])
		switch {
		case lk == rk:
			out = append(out, Entry[L, R]{Left: &left[i], Right: &right[j]})
			i++
			j++
		case lk < rk:
			out = append(out, Entry[L, R]{Left: &left[i]})
			i++
		default:
			out = append(out, Entry[L, R]{Right: &right[j]})
			j++
		}
	}
	for ; i < len(left); i++ {
		out = append(out, Entry[L, R]{Left: &left[i]})
	}
	for ; j < len(right); j++ {
		out = append(out, Entry[L, R]{Right: &right[j]})
	}
	return out
}
