// Package similarity provides fuzzy text similarity between short task
// labels and a generic complete-linkage clusterer built on top of it.
package similarity

import (
	"regexp"
	"strings"
)

// Config controls how the blended similarity score is computed.
type Config struct {
	// BigramWeight is the contribution of the character-bigram Dice
	// coefficient. Default: 0.6
	BigramWeight float64 `json:"bigram_weight" yaml:"bigram_weight"`

	// WordWeight is the contribution of the whole-word Jaccard index.
	// Default: 0.4
	WordWeight float64 `json:"word_weight" yaml:"word_weight"`
}

// DefaultConfig returns the standard blend of 0.6 bigram / 0.4 word.
func DefaultConfig() Config {
	return Config{
		BigramWeight: 0.6,
		WordWeight:   0.4,
	}
}

// placeholderRe matches {{...}} variable references left by title-pattern
// extraction (story title/id/description).
var placeholderRe = regexp.MustCompile(`\{\{[^}]*\}\}`)

// verbPrefixRe strips a leading breakdown verb ("Implement: X" and
// "Implement X" both reduce to "X").
var verbPrefixRe = regexp.MustCompile(`(?i)^(task|implement|create|build|design|test|fix)\b:?\s*`)

// whitespaceRe collapses runs of whitespace.
var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTitle reduces a task title to a comparable form: placeholder
// references and a leading breakdown verb are stripped, whitespace is
// collapsed, and the result is lower-cased. Clustering and canonical-title
// comparison both go through this so wording noise does not fragment
// clusters.
func NormalizeTitle(title string) string {
	s := placeholderRe.ReplaceAllString(title, " ")
	s = strings.TrimSpace(s)
	s = verbPrefixRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Score returns the blended similarity of two labels in [0,1] using the
// default config.
func Score(a, b string) float64 {
	return ScoreWithConfig(a, b, DefaultConfig())
}

// ScoreWithConfig returns the blended similarity of two labels in [0,1].
// Both inputs are lower-cased and whitespace-normalized first. Two empty
// strings are fully similar (1.0); one empty and one non-empty are fully
// dissimilar (0.0).
func ScoreWithConfig(a, b string, cfg Config) float64 {
	na := canonicalize(a)
	nb := canonicalize(b)

	if na == "" && nb == "" {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	total := cfg.BigramWeight + cfg.WordWeight
	if total == 0 {
		total = 1.0
	}

	dice := BigramDice(na, nb)
	jaccard := WordJaccard(na, nb)

	return (cfg.BigramWeight*dice + cfg.WordWeight*jaccard) / total
}

// canonicalize lower-cases and collapses whitespace.
func canonicalize(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// BigramDice computes the character-bigram Dice coefficient of two
// strings. Bigrams spanning a word boundary are skipped. Two empty
// strings are fully similar; one empty string is fully dissimilar. When
// neither string yields a bigram (single-character inputs), exact
// equality decides.
func BigramDice(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)

	if len(bigramsA) == 0 && len(bigramsB) == 0 {
		if a == b {
			return 1.0
		}
		return 0.0
	}
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(bigramsA))
	for _, g := range bigramsA {
		counts[g]++
	}

	intersection := 0
	for _, g := range bigramsB {
		if counts[g] > 0 {
			counts[g]--
			intersection++
		}
	}

	return (2.0 * float64(intersection)) / float64(len(bigramsA)+len(bigramsB))
}

// bigrams returns the multiset of character bigrams, excluding pairs that
// cross a space.
func bigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	grams := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] == ' ' || runes[i+1] == ' ' {
			continue
		}
		grams = append(grams, string(runes[i:i+2]))
	}
	return grams
}

// WordJaccard computes the Jaccard index over whitespace-tokenized word
// sets. Same empty-string edge cases as BigramDice.
func WordJaccard(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	setA := wordSet(a)
	setB := wordSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// wordSet tokenizes on whitespace into a set.
func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
