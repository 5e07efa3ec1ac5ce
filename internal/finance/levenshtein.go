package finance

// Distance returns the Levenshtein edit distance between a and b over
// Unicode code points. Insertion, deletion and substitution each cost 1.
func Distance(a, b string) int {
	return distance([]rune(a), []rune(b))
}

func distance(s1, s2 []rune) int {
	dp := make([][]int, len(s1)+1)
	for i := range dp {
		dp[i] = make([]int, len(s2)+1)
		dp[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			dp[i][j] = min(dp[i-1][j]+1, dp[i][j-1]+1, dp[i-1][j-1]+cost)
		}
	}

	return dp[len(s1)][len(s2)]
}

// fuzzyContains reports whether term occurs in text within an edit distance
// of max(1, len(term)/4), checked over windows of len(term)+threshold runes.
func fuzzyContains(text, term []rune) bool {
	threshold := max(1, len(term)/4)
	windowSize := len(term) + threshold

	for i := 0; i <= len(text)-len(term); i++ {
		end := min(i+windowSize, len(text))
		if distance(text[i:end], term) <= threshold {
			return true
		}
	}
	return false
}
