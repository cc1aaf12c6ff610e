// Package accent classifies Vietnamese text into a regional dialect (north,
// central, south) from lexical evidence.
package accent

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// FallbackRegion is reported when the text carries no usable signal.
const FallbackRegion = "north"

// Fallback reasons carried in Result.Fallback.
const (
	FallbackEmptyInput    = "empty_input"
	FallbackLowSignal     = "low_signal"
	FallbackInternalError = "internal_error"
)

const (
	lowSignalFloor     = 0.3
	fallbackConfidence = 0.5
	maxScore           = 1.0
	maxIndicators      = 5
	maxAnalyzedRunes   = 100
)

// Result is the outcome of classifying one text.
type Result struct {
	Region       string             `json:"region"`
	Confidence   float64            `json:"confidence"`
	Scores       map[string]float64 `json:"scores"`
	Indicators   []string           `json:"indicators"`
	TextAnalyzed string             `json:"text_analyzed"`
	Fallback     string             `json:"fallback,omitempty"`
}

var unknownRegion = RegionInfo{
	Name:            "Unknown",
	Description:     "Không xác định được vùng miền",
	Characteristics: []string{},
}

type compiledProfile struct {
	profile RegionProfile
	rules   []rule
}

func (p compiledProfile) score(text string) float64 {
	s := p.profile.Baseline
	for _, r := range p.rules {
		s += r.apply(text)
	}
	return min(s, maxScore)
}

// evidence lists matched vocabulary then expressions of the profile.
// Single-syllable terms must match a whole word so that "à" is not reported
// for "sài".
func (p compiledProfile) evidence(text string) []string {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) {
		words[w] = true
	}
	mentions := func(term string) bool {
		if strings.ContainsRune(term, ' ') {
			return strings.Contains(text, term)
		}
		return words[term]
	}

	indicators := make([]string, 0, maxIndicators)
	for _, w := range p.profile.Vocabulary {
		if mentions(w) {
			indicators = append(indicators, "vocabulary: "+w)
		}
	}
	for _, e := range p.profile.Expressions {
		if mentions(e) {
			indicators = append(indicators, "expression: "+e)
		}
	}
	if len(indicators) > maxIndicators {
		indicators = indicators[:maxIndicators]
	}
	return indicators
}

// Classifier scores text against a fixed set of region profiles. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	profiles []compiledProfile
	log      zerolog.Logger
}

// New builds a classifier over the given profiles. Profile order decides ties.
func New(profiles []RegionProfile, log zerolog.Logger) (*Classifier, error) {
	if err := validateProfiles(profiles); err != nil {
		return nil, err
	}
	c := &Classifier{log: log.With().Str("component", "accent").Logger()}
	for _, p := range profiles {
		c.profiles = append(c.profiles, compiledProfile{profile: p, rules: p.rules()})
	}
	return c, nil
}

// NewDefault builds a classifier over the embedded profiles.
func NewDefault(log zerolog.Logger) (*Classifier, error) {
	profiles, err := DefaultProfiles()
	if err != nil {
		return nil, err
	}
	return New(profiles, log)
}

// Regions returns the configured region names in evaluation order.
func (c *Classifier) Regions() []string {
	names := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		names = append(names, p.profile.Name)
	}
	return names
}

// RegionInfo returns the learner-facing description of a region. Unknown
// names yield the "Unknown" record.
func (c *Classifier) RegionInfo(name string) RegionInfo {
	if p, ok := c.lookup(strings.ToLower(strings.TrimSpace(name))); ok {
		return p.profile.Info
	}
	return unknownRegion
}

// Classify never fails: empty input, weak evidence and internal faults all
// produce a result tagged with the fallback reason.
func (c *Classifier) Classify(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("Accent classification failed, returning default result")
			res = defaultResult(FallbackInternalError)
		}
	}()

	normalized := normalize(text)
	if normalized == "" {
		return defaultResult(FallbackEmptyInput)
	}

	scores := make(map[string]float64, len(c.profiles))
	best, bestScore := -1, 0.0
	for i, p := range c.profiles {
		s := p.score(normalized)
		scores[p.profile.Name] = round3(s)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}

	region := c.profiles[best].profile.Name
	confidence := bestScore
	fallback := ""
	if bestScore < lowSignalFloor {
		region = FallbackRegion
		confidence = fallbackConfidence
		fallback = FallbackLowSignal
	}

	winner, _ := c.lookup(region)
	res = Result{
		Region:       region,
		Confidence:   round3(confidence),
		Scores:       scores,
		Indicators:   winner.evidence(normalized),
		TextAnalyzed: truncate(text, maxAnalyzedRunes),
		Fallback:     fallback,
	}

	c.log.Debug().
		Str("region", res.Region).
		Float64("confidence", res.Confidence).
		Str("fallback", res.Fallback).
		Msg("Accent classified")
	return res
}

func (c *Classifier) lookup(name string) (compiledProfile, bool) {
	for _, p := range c.profiles {
		if p.profile.Name == name {
			return p, true
		}
	}
	return compiledProfile{}, false
}

func defaultResult(reason string) Result {
	return Result{
		Region:     FallbackRegion,
		Confidence: fallbackConfidence,
		Scores: map[string]float64{
			"north":   0.5,
			"central": 0.25,
			"south":   0.25,
		},
		Indicators: []string{"default: standard Vietnamese"},
		Fallback:   reason,
	}
}

func normalize(text string) string {
	return strings.TrimSpace(norm.NFC.String(strings.ToLower(text)))
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
