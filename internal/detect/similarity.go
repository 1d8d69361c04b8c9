package detect

// Descriptor similarity uses the Sørensen-Dice coefficient over character
// bigrams: symmetric, and it absorbs the small formatting drift banks
// introduce ("netflix.com 123" vs "netflix.com").

// bigrams returns the multiset of adjacent character pairs of s.
func bigrams(s string) map[string]int {
	grams := make(map[string]int)
	for i := 0; i+2 <= len(s); i++ {
		grams[s[i:i+2]]++
	}
	return grams
}

// Similarity returns a score in [0,1]: 1 for identical strings, 0 for no
// shared bigrams. Strings shorter than two characters only match exactly.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	ga, gb := bigrams(a), bigrams(b)
	overlap := 0
	for g, na := range ga {
		if nb, ok := gb[g]; ok {
			if na < nb {
				overlap += na
			} else {
				overlap += nb
			}
		}
	}
	total := len(a) - 1 + len(b) - 1
	return float64(2*overlap) / float64(total)
}
