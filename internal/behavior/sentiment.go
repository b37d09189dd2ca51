package behavior

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Lexicons mirror the support-ticket vocabulary the scoring was tuned on.
var (
	positiveTokens = map[string]bool{
		"thanks":    true,
		"quick":     true,
		"helpful":   true,
		"resolved":  true,
		"great":     true,
		"excellent": true,
	}

	negativeTokens = map[string]bool{
		"frustrated":   true,
		"disappointed": true,
		"urgent":       true,
		"downtime":     true,
		"escalation":   true,
		"critical":     true,
		"angry":        true,
		"broken":       true,
	}

	// Phrases checked against adjacent token pairs.
	negativeBigrams = map[string]bool{
		"not working": true,
	}
)

// sentimentFullWeightHits is the lexicon hit count at which sentiment reaches
// full magnitude. A single sour ticket should nudge the score, not dominate it.
const sentimentFullWeightHits = 6.0

// ScoreSentiment derives a [-1,1] sentiment signal from support-ticket notes.
// Empty or lexicon-free notes are neutral (0).
func ScoreSentiment(notes []string) float64 {
	if len(notes) == 0 {
		return 0
	}

	var posHits, negHits float64

	for _, note := range notes {
		tokens := tokenize(note)
		for i, token := range tokens {
			if positiveTokens[token] {
				posHits++
			}
			if negativeTokens[token] {
				negHits++
			}
			if i+1 < len(tokens) && negativeBigrams[token+" "+tokens[i+1]] {
				negHits++
			}
		}
	}

	total := posHits + negHits
	if total == 0 {
		return 0
	}

	raw := (posHits - negHits) / total
	damp := total / sentimentFullWeightHits
	if damp > 1 {
		damp = 1
	}

	return clampBipolar(raw * damp)
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(
		strings.ToLower(text),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Fields(strings.ToLower(text))
	}

	proseTokens := doc.Tokens()
	tokens := make([]string, 0, len(proseTokens))
	for _, token := range proseTokens {
		tokens = append(tokens, token.Text)
	}
	return tokens
}
