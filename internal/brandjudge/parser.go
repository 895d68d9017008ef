// Package brandjudge turns free-text model judgments about brand/domain
// matches into typed results.
package brandjudge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Judgment is a structured brand-match judgment extracted from a model
// response.
type Judgment struct {
	// Match reports whether the model judged the brand and domain to
	// belong together.
	Match bool
	// Explanation is the model's free-text reasoning.
	Explanation string
	// Confidence is the normalized confidence in [0,1], nil when the
	// model gave none (or gave one that could not be interpreted).
	Confidence *float64
}

// ParseError indicates the required labeled fields could not be located
// in a model response.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("brandjudge: could not locate BrandMatch/Explanation/Confidence in response: %.200q", e.Text)
}

// judgmentRE matches the three numbered fields a judge response must
// carry. It is tolerant of case, angle-bracket wrapping, surrounding
// whitespace, and multi-line explanations. Confidence captures the rest
// of its line; interpretation happens separately so a malformed value
// degrades instead of failing the parse.
var judgmentRE = regexp.MustCompile(`(?ims)` +
	`^\s*1\.\s*BrandMatch\s*:\s*<?\s*(true|false)\s*>?\s*$` +
	`.*?` +
	`^\s*2\.\s*Explanation\s*:\s*(.*?)\s*` +
	`^\s*3\.\s*Confidence\s*:\s*<?\s*([^\r\n]*?)\s*>?\s*$`)

// Parse extracts a Judgment from a model response. Match and explanation
// are load-bearing: if either cannot be located, Parse fails with a
// *ParseError. A confidence value that cannot be interpreted yields a nil
// Confidence, not an error.
func Parse(text string) (*Judgment, error) {
	m := judgmentRE.FindStringSubmatch(text)
	if m == nil {
		return nil, &ParseError{Text: text}
	}

	return &Judgment{
		Match:       strings.EqualFold(strings.TrimSpace(m[1]), "true"),
		Explanation: strings.TrimSpace(m[2]),
		Confidence:  normalizeConfidence(m[3]),
	}, nil
}

// normalizeConfidence interprets a raw confidence token:
// a literal fraction is used as-is, a percentage is divided by 100, a
// numeric range "a-b" is reduced to its midpoint, and "unknown"/"n/a"
// yield no value. Results are clamped to [0,1]; anything uninterpretable
// yields nil.
func normalizeConfidence(raw string) *float64 {
	raw = strings.ToLower(strings.TrimSpace(raw))

	switch raw {
	case "", "unknown", "n/a", "na":
		return nil
	}

	if pct, ok := strings.CutSuffix(raw, "%"); ok {
		num, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return nil
		}
		return clamp(num / 100.0)
	}

	if lo, hi, ok := strings.Cut(raw, "-"); ok {
		a, errA := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if errA != nil || errB != nil {
			return nil
		}
		return clamp((a + b) / 2.0)
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return clamp(val)
}

// clamp bounds v to [0,1] and returns a pointer to it.
func clamp(v float64) *float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}
