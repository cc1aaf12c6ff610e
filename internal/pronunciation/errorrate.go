package pronunciation

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var unitCost = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// wordErrorRate is the word-level edit distance normalized by the target
// length. Words are interned to private-use runes so the rune distance
// applies to whole words.
func wordErrorRate(targetWords, transcribedWords []string) float64 {
	if len(targetWords) == 0 {
		return 0
	}
	ids := make(map[string]rune)
	intern := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			id, ok := ids[w]
			if !ok {
				id = rune(0xF0000 + len(ids))
				ids[w] = id
			}
			out[i] = id
		}
		return out
	}
	ref := intern(targetWords)
	hyp := intern(transcribedWords)
	return float64(levenshtein.DistanceForStrings(ref, hyp, unitCost)) / float64(len(ref))
}

func charErrorRate(target, transcribed string) float64 {
	ref := []rune(target)
	if len(ref) == 0 {
		return 0
	}
	dist := levenshtein.DistanceForStrings(ref, []rune(transcribed), unitCost)
	return float64(dist) / float64(len(ref))
}
