// Package fuzzy scores approximate similarity between short phrases on a
// 0-100 scale. Scores are built from normalised Levenshtein distance and
// combined the way token-based fuzzy matchers usually do: whole-string,
// best-substring, sorted-token and token-set comparisons, weighted by how
// different the two lengths are.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Normalize lower-cases s, turns every non letter/digit into a space and
// collapses runs of whitespace.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Ratio is 100 * (1 - distance/longest) for the two strings as given.
func Ratio(a, b string) int {
	return round(ratio(a, b))
}

// PartialRatio compares the shorter string with every equally long window
// of the longer one and keeps the best score.
func PartialRatio(a, b string) int {
	return round(partialRatio(a, b))
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) int {
	return round(ratio(sortedTokens(Normalize(a)), sortedTokens(Normalize(b))))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
func TokenSetRatio(a, b string) int {
	return round(tokenSet(Normalize(a), Normalize(b), ratio))
}

// Score is the weighted similarity used to pick the closest label for a
// free-text request. Both inputs are normalised first; an empty side scores 0.
func Score(a, b string) int {
	p1, p2 := Normalize(a), Normalize(b)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := ratio(p1, p2)
	l1, l2 := runeLen(p1), runeLen(p2)
	lenRatio := float64(max(l1, l2)) / float64(min(l1, l2))

	if lenRatio < 1.5 {
		tsor := ratio(sortedTokens(p1), sortedTokens(p2)) * 0.95
		tser := tokenSet(p1, p2, ratio) * 0.95
		return round(math.Max(base, math.Max(tsor, tser)))
	}

	partialScale := 0.9
	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := partialRatio(p1, p2) * partialScale
	ptsor := partialRatio(sortedTokens(p1), sortedTokens(p2)) * 0.95 * partialScale
	ptser := tokenSet(p1, p2, partialRatio) * 0.95 * partialScale
	return round(math.Max(base, math.Max(partial, math.Max(ptsor, ptser))))
}

// Match is a candidate with its score.
type Match struct {
	Candidate string
	Score     int
	Index     int
}

// Best returns the highest scoring candidate. Ties keep the earliest
// candidate. ok is false only when candidates is empty.
func Best(query string, candidates []string) (best Match, ok bool) {
	best.Index = -1
	for i, c := range candidates {
		s := Score(query, c)
		if !ok || s > best.Score {
			best = Match{Candidate: c, Score: s, Index: i}
			ok = true
		}
	}
	return best, ok
}

func ratio(a, b string) float64 {
	la, lb := runeLen(a), runeLen(b)
	if la == 0 && lb == 0 {
		return 0
	}
	longest := max(la, lb)
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}

func partialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

func tokenSet(a, b string, cmp func(string, string) float64) float64 {
	ta, tb := tokensOf(a), tokensOf(b)

	var sect, diffAB, diffBA []string
	for tok := range ta {
		if tb[tok] {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			diffBA = append(diffBA, tok)
		}
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)

	t1 := strings.Join(sect, " ")
	t2 := strings.TrimSpace(t1 + " " + strings.Join(diffAB, " "))
	t3 := strings.TrimSpace(t1 + " " + strings.Join(diffBA, " "))

	return math.Max(cmp(t1, t2), math.Max(cmp(t1, t3), cmp(t2, t3)))
}

func tokensOf(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func round(f float64) int {
	return int(math.Round(f))
}
