package analysis

// Mode returns the most frequent non-blank value of dim over v and its
// count. Ties go to the lexicographically smallest value. A view with no
// non-blank values yields ("", 0).
func Mode(v View, dim Dimension) (string, int) {
	counts := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		if s := dim.Value(v.At(i)); s != "" {
			counts[s]++
		}
	}

	var best string
	var bestN int
	for s, n := range counts {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return best, bestN
}
