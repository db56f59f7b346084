package reactive

// Identity returns an equality policy using ==.
func Identity[T comparable]() func(a, b T) bool {
	return func(a, b T) bool { return a == b }
}

// SliceIdentity reports whether two slices have identical elements in
// identical order, comparing elements with ==. It is the policy for
// collection-shaped results: a recomputation that rebuilds the same
// membership in the same order is not a change.
func SliceIdentity[E comparable](a, b []E) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
