package service

import (
	"context"
	"time"
)

const (
	eventPublishTimeout = 5 * time.Second
	eventTypeAssessed   = "pronunciation.assessed"
)

// EventPublisher is satisfied by *client.PubSubClient.
type EventPublisher interface {
	Publish(ctx context.Context, data interface{}, attrs map[string]string) error
}

// AssessmentEvent summarizes a finished assessment for downstream
// consumers (progress tracking, analytics). Transcripts and audio are not
// included.
type AssessmentEvent struct {
	Type         string    `json:"type"`
	RequestID    string    `json:"request_id,omitempty"`
	Engine       string    `json:"engine"`
	Language     string    `json:"language"`
	OverallScore float64   `json:"overall_score"`
	WordAccuracy float64   `json:"word_accuracy"`
	MissingWords int       `json:"missing_words"`
	AccentRegion string    `json:"accent_region,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func newAssessmentEvent(a *Assessment) AssessmentEvent {
	ev := AssessmentEvent{
		Type:         eventTypeAssessed,
		RequestID:    a.RequestID,
		Engine:       a.Transcription.Engine,
		Language:     a.Transcription.Language,
		OverallScore: a.Pronunciation.OverallScore,
		WordAccuracy: a.Pronunciation.WordAccuracy,
		MissingWords: len(a.Pronunciation.ErrorAnalysis.MissingWords),
		OccurredAt:   time.Now().UTC(),
	}
	if a.Accent != nil {
		ev.AccentRegion = a.Accent.Region
	}
	return ev
}

func (e AssessmentEvent) attributes() map[string]string {
	attrs := map[string]string{
		"type":   e.Type,
		"engine": e.Engine,
	}
	if e.AccentRegion != "" {
		attrs["region"] = e.AccentRegion
	}
	return attrs
}
