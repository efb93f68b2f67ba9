// Package dupcheck scores freshly generated text against a rolling
// history of content fingerprints so the autoposting executor can avoid
// publishing near-identical posts back to back.
package dupcheck

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultThreshold is the Jaccard similarity above which content is
	// considered a duplicate.
	DefaultThreshold = 0.7

	// minComparableTokens guards against flagging texts too short to
	// compare meaningfully.
	minComparableTokens = 10

	summaryTokens   = 20
	summaryMaxChars = 200
)

// stopwords covers English and Russian filler words that carry no
// topical signal.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "can",
		"that", "this", "with", "from", "they", "will", "have", "has",
		"been", "were", "was", "what", "when", "your", "which", "their",
		"there", "about", "would", "could", "should", "into", "more",
		"also", "than", "then", "them", "these", "those", "some", "such",
		"только", "которые", "который", "которая", "чтобы", "когда",
		"также", "более", "менее", "очень", "если", "этот", "этой",
		"этого", "может", "быть", "было", "были", "есть", "того",
		"такой", "здесь", "потому", "поэтому",
	} {
		stopwords[w] = struct{}{}
	}
}

type Result struct {
	IsSimilar  bool
	Similarity float64
	Reason     string
}

// Check reports the maximum Jaccard similarity between content and any
// fingerprint in history. Empty history and texts shorter than ten
// tokens short-circuit to "not similar".
func Check(content string, history []string, threshold float64) Result {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	candidate := tokenSet(content)
	if len(candidate) < minComparableTokens || len(history) == 0 {
		return Result{}
	}

	var maxSim float64
	for _, past := range history {
		if sim := jaccard(candidate, tokenSet(past)); sim > maxSim {
			maxSim = sim
		}
	}

	res := Result{Similarity: maxSim}
	if maxSim >= threshold {
		res.IsSimilar = true
		res.Reason = fmt.Sprintf("content is %.0f%% similar to a recent post", maxSim*100)
	}
	return res
}

// Summarize produces the fingerprint stored in a rule's content history:
// the first twenty significant tokens, capped at 200 characters. The
// full post text is never stored.
func Summarize(content string) string {
	tokens := tokenize(content)
	if len(tokens) > summaryTokens {
		tokens = tokens[:summaryTokens]
	}
	s := strings.Join(tokens, " ")
	if len(s) > summaryMaxChars {
		s = s[:summaryMaxChars]
	}
	return s
}

// TrimHistory bounds history to the most recent max(daysToKeep*2, 10)
// entries. The count approximates two posts per day; it is not true
// date-based retention.
func TrimHistory(history []string, daysToKeep int) []string {
	keep := daysToKeep * 2
	if keep < 10 {
		keep = 10
	}
	if len(history) <= keep {
		return history
	}
	return history[len(history)-keep:]
}

// RegenerationPrompt augments the original generation prompt with
// explicit anti-duplication instructions. The executor uses it for at
// most one retry per run.
func RegenerationPrompt(originalPrompt, similarText string) string {
	excerpt := similarText
	if len(excerpt) > 100 {
		excerpt = excerpt[:100]
	}
	return originalPrompt + fmt.Sprintf(
		"\n\nIMPORTANT: a recent post already covered this: \"%s...\". "+
			"Do not repeat it. Take a different angle, use different wording and a different tone.",
		excerpt,
	)
}

// tokenize lowercases, strips punctuation, and drops short tokens and
// stopwords, preserving first-seen order without duplicates.
func tokenize(content string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, content)

	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) <= 3 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

func tokenSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(content) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
