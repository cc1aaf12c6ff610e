// Package pronunciation scores a learner's attempt at a Vietnamese utterance
// by comparing the target text with what the recognizer heard.
package pronunciation

import (
	"fmt"
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
)

const (
	wordWeight     = 0.5
	phoneticWeight = 0.3
	lengthWeight   = 0.2
)

// Vietnamese messages for results that could not be scored.
const (
	MsgMissingText   = "Thiếu văn bản mẫu hoặc văn bản nhận dạng"
	MsgScoringFailed = "Không thể chấm điểm phát âm"
	retrySuggestion  = "Vui lòng thử lại với audio rõ hơn"
)

// Result is the outcome of scoring one attempt.
//
// PhoneticAccuracy includes the difficult-sound bonus and may exceed 100;
// only OverallScore is clamped to [0, 100].
type Result struct {
	OverallScore     float64       `json:"overall_score"`
	WordAccuracy     float64       `json:"word_accuracy"`
	PhoneticAccuracy float64       `json:"phonetic_accuracy"`
	LengthScore      float64       `json:"length_score"`
	Feedback         string        `json:"feedback"`
	Accuracy         string        `json:"accuracy"`
	ErrorAnalysis    ErrorAnalysis `json:"error_analysis"`
	Suggestions      []string      `json:"suggestions"`
	TargetText       string        `json:"target_text"`
	TranscribedText  string        `json:"transcribed_text"`
	WordErrorRate    float64       `json:"word_error_rate"`
	CharErrorRate    float64       `json:"char_error_rate"`
}

// Empty reports whether the result is the zero-score placeholder returned
// for unscorable input.
func (r Result) Empty() bool {
	return strings.HasPrefix(r.Feedback, "❌")
}

// Scorer is stateless and safe for concurrent use. Use NewScorer; a zero
// Scorer has no matcher and reports every attempt as a scoring failure.
type Scorer struct {
	ratio func(a, b []string) float64
	log   zerolog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{
		ratio: sequenceRatio,
		log:   log.With().Str("component", "pronunciation").Logger(),
	}
}

// Score compares the target utterance with the transcription. It never
// fails: empty input and internal faults yield a zero-score result whose
// feedback carries the reason.
func (s *Scorer) Score(target, transcribed string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("Pronunciation scoring failed")
			res = emptyResult(MsgScoringFailed)
		}
	}()

	t := Normalize(target)
	h := Normalize(transcribed)
	if t == "" || h == "" {
		return emptyResult(MsgMissingText)
	}

	tWords := strings.Fields(t)
	hWords := strings.Fields(h)

	wordAcc := s.wordAccuracy(tWords, hWords)
	phoneticAcc := s.phoneticAccuracy(t, h)
	lengthScore := lengthAppropriateness(len(tWords), len(hWords))

	composite := wordAcc*wordWeight + phoneticAcc*phoneticWeight + lengthScore*lengthWeight
	composite = math.Max(0, math.Min(100, composite))

	analysis, matched := analyze(t, h, tWords, hWords)

	res = Result{
		OverallScore:     round(composite, 1),
		WordAccuracy:     round(wordAcc, 1),
		PhoneticAccuracy: round(phoneticAcc, 1),
		LengthScore:      round(lengthScore, 1),
		Feedback:         feedback(composite, wordAcc, phoneticAcc),
		Accuracy:         fmt.Sprintf("%d/%d từ chính xác", matched, len(tWords)),
		ErrorAnalysis:    analysis,
		Suggestions:      suggestions(analysis),
		TargetText:       target,
		TranscribedText:  transcribed,
		WordErrorRate:    round(wordErrorRate(tWords, hWords), 3),
		CharErrorRate:    round(charErrorRate(t, h), 3),
	}

	s.log.Info().
		Float64("score", res.OverallScore).
		Str("accuracy", res.Accuracy).
		Msg("Pronunciation scored")
	return res
}

// sequenceRatio is the Ratcliff/Obershelp similarity of two sequences.
func sequenceRatio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}

func (s *Scorer) wordAccuracy(target, transcribed []string) float64 {
	if len(target) == 0 {
		return 0
	}
	return s.ratio(target, transcribed) * 100
}

func (s *Scorer) phoneticAccuracy(target, transcribed string) float64 {
	ratio := s.ratio(runeTokens(target), runeTokens(transcribed))
	return ratio*100 + soundBonus(target, transcribed)
}

func lengthAppropriateness(targetLen, transcribedLen int) float64 {
	if targetLen == 0 {
		return 0
	}
	return float64(min(targetLen, transcribedLen)) / float64(max(targetLen, transcribedLen)) * 100
}

func emptyResult(reason string) Result {
	return Result{
		Feedback:      "❌ " + reason,
		Accuracy:      "0/0 từ chính xác",
		ErrorAnalysis: emptyAnalysis(),
		Suggestions:   []string{retrySuggestion},
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
