package engine

// The helpers below never modify their input slice.

func replaceAt[T any](s []T, i int, v T) []T {
	out := make([]T, len(s))
	copy(out, s)
	out[i] = v
	return out
}

func insertAt[T any](s []T, i int, v ...T) []T {
	if i < 0 || i > len(s) {
		i = len(s)
	}
	out := make([]T, 0, len(s)+len(v))
	out = append(out, s[:i]...)
	out = append(out, v...)
	return append(out, s[i:]...)
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func swap[T any](s []T, i, j int) []T {
	out := make([]T, len(s))
	copy(out, s)
	out[i], out[j] = out[j], out[i]
	return out
}

// neighbor returns the index a single-step move from i lands on, and false
// when the move would leave the slice.
func neighbor(i, n int, d Direction) (int, bool) {
	switch d {
	case Up:
		return i - 1, i > 0
	case Down:
		return i + 1, i < n-1
	}
	return i, false
}

// moveTo removes the element at from and reinserts it so it ends up at
// index to. Out-of-range targets land at the end.
func moveTo[T any](s []T, from, to int) []T {
	item := s[from]
	rest := removeAt(s, from)
	if to < 0 || to > len(rest) {
		to = len(rest)
	}
	return insertAt(rest, to, item)
}

// resolveIndex clamps a target index into [0, n]; negative means append.
func resolveIndex(index, n int) int {
	if index < 0 || index > n {
		return n
	}
	return index
}
