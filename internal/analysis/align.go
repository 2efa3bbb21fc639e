package analysis

import "strings"

// alignWords compares the reference text against the transcript word by word
// using a longest-common-subsequence alignment on normalized tokens.
// Reference words present in the transcript are "correct", reference words
// absent are "missed", and transcript words with no reference counterpart are
// "extra". The returned slice preserves reading order and reports reference
// words with their original casing.
func alignWords(reference, transcript string) []WordResult {
	refWords := strings.Fields(reference)
	trWords := strings.Fields(transcript)
	ref := normalizeAll(refWords)
	tr := normalizeAll(trWords)

	n, m := len(ref), len(tr)
	if n == 0 && m == 0 {
		return []WordResult{}
	}

	// LCS table over normalized tokens.
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if ref[i] == tr[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	out := make([]WordResult, 0, n)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case ref[i] == tr[j]:
			out = append(out, WordResult{Word: refWords[i], Status: WordCorrect})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, WordResult{Word: refWords[i], Status: WordMissed})
			i++
		default:
			out = append(out, WordResult{Word: trWords[j], Status: WordExtra})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, WordResult{Word: refWords[i], Status: WordMissed})
	}
	for ; j < m; j++ {
		out = append(out, WordResult{Word: trWords[j], Status: WordExtra})
	}
	return out
}

func normalizeAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = normalizeWord(w)
	}
	return out
}

// normalizeWord lowercases and strips punctuation so "cat," matches "cat".
func normalizeWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\'' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
