// Package scoring holds the deterministic formulas used to rank candidate
// pages and suggested links.
package scoring

import "math"

// Underlinked scores how much a page lacks links, in [0,1]. Pages shorter
// than minLength score 0. Link tokens beyond the word count clamp to 0.
func Underlinked(length, minLength, linkTokens, words int, exponent float64) float64 {
	if length < minLength {
		return 0
	}
	density := math.Min(1, float64(linkTokens)/float64(max(1, words)))
	return math.Pow(1-density, exponent)
}

// popularityHalfPoint is the inbound link count at which popularity is 0.5.
const popularityHalfPoint = 20

// Popularity maps a target's inbound link count into [0,1).
func Popularity(inboundLinks int) float64 {
	if inboundLinks <= 0 {
		return 0
	}
	return float64(inboundLinks) / float64(inboundLinks+popularityHalfPoint)
}

// Specificity favors longer anchor phrases.
func Specificity(words int) float64 {
	switch {
	case words <= 1:
		return 0.5
	case words == 2:
		return 0.75
	default:
		return 1
	}
}

// LinkScore is the score of a suggested link in [0,1].
func LinkScore(inboundLinks, anchorWords int) float64 {
	return Popularity(inboundLinks) * Specificity(anchorWords)
}
