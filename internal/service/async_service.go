package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/client"
	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/observe"
)

const (
	// Redis key prefix for async assessment results
	resultKeyPrefix = "pronunciation:result:"
	// TTL for results nobody collected
	defaultResultTTL = 60 * time.Second
	// Default timeout for BLPOP waiting
	defaultWaitTimeout = 10 * time.Second
	// Bound on one background assessment
	defaultJobTimeout = 30 * time.Second
)

// ResultQueue is satisfied by *client.RedisClient. Pop returns
// client.ErrQueueTimeout when nothing arrived in time.
type ResultQueue interface {
	Push(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
}

// AsyncTicket is returned immediately from SubmitAsync.
type AsyncTicket struct {
	RequestID string `json:"request_id"`
}

// asyncPayload is what the producer pushes: exactly one of the fields is set.
type asyncPayload struct {
	Assessment *Assessment      `json:"assessment,omitempty"`
	Error      *errors.AppError `json:"error,omitempty"`
}

// AsyncService runs assessments in the background and hands results over
// through a short-lived queue entry.
type AsyncService struct {
	assessments *AssessmentService
	queue       ResultQueue
	resultTTL   time.Duration
	waitTimeout time.Duration
	jobTimeout  time.Duration
	metrics     *observe.Metrics
	log         zerolog.Logger
}

// AsyncOption configures an AsyncService.
type AsyncOption func(*AsyncService)

// WithResultTTL sets how long an unclaimed result is kept.
func WithResultTTL(d time.Duration) AsyncOption {
	return func(s *AsyncService) {
		if d > 0 {
			s.resultTTL = d
		}
	}
}

// WithWaitTimeout sets how long AsyncResult blocks.
func WithWaitTimeout(d time.Duration) AsyncOption {
	return func(s *AsyncService) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// WithJobTimeout bounds one background assessment.
func WithJobTimeout(d time.Duration) AsyncOption {
	return func(s *AsyncService) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithAsyncMetrics tracks in-flight background assessments.
func WithAsyncMetrics(m *observe.Metrics) AsyncOption {
	return func(s *AsyncService) { s.metrics = m }
}

// NewAsyncService creates a new AsyncService.
func NewAsyncService(assessments *AssessmentService, queue ResultQueue, log zerolog.Logger, opts ...AsyncOption) *AsyncService {
	s := &AsyncService{
		assessments: assessments,
		queue:       queue,
		resultTTL:   defaultResultTTL,
		waitTimeout: defaultWaitTimeout,
		jobTimeout:  defaultJobTimeout,
		log:         log.With().Str("component", "async").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitAsync validates the request, resolves its audio and target, then
// spawns the assessment and returns a request id right away.
// This is the PRODUCER side of the hand-off.
func (s *AsyncService) SubmitAsync(ctx context.Context, req AssessRequest) (*AsyncTicket, error) {
	if s.queue == nil {
		return nil, errors.New(errors.ErrInternal, "Chức năng chấm điểm bất đồng bộ chưa được bật")
	}

	p, err := s.assessments.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	p.requestID = fmt.Sprintf("req_%s", uuid.New().String()[:8])

	s.log.Info().
		Str("request_id", p.requestID).
		Int("audio_bytes", len(p.audio)).
		Msg("Assessment accepted, spawning background job")

	s.metrics.AsyncStarted(ctx)
	go s.process(p)

	return &AsyncTicket{RequestID: p.requestID}, nil
}

// process runs detached from the submitting request.
func (s *AsyncService) process(p *prepared) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	defer s.metrics.AsyncFinished(context.Background())

	var payload asyncPayload
	result, err := s.assessments.run(ctx, p)
	if err != nil {
		appErr, ok := errors.As(err)
		if !ok {
			appErr = errors.InternalWrap("Không thể chấm điểm phát âm", err)
		}
		payload.Error = appErr
	} else {
		payload.Assessment = result
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", p.requestID).Msg("Failed to encode assessment result")
		return
	}

	// Push uses a fresh context so a job that hit its deadline still
	// reports the failure.
	pushCtx, pushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pushCancel()
	if err := s.queue.Push(pushCtx, resultKeyPrefix+p.requestID, data, s.resultTTL); err != nil {
		s.log.Error().Err(err).Str("request_id", p.requestID).Msg("Failed to push assessment result")
		return
	}

	s.log.Info().
		Str("request_id", p.requestID).
		Bool("failed", payload.Error != nil).
		Msg("Background assessment complete, result pushed")
}

// AsyncResult waits for the result of a submitted assessment. It returns
// a TIMEOUT error when nothing arrived within the wait window; the result
// is consumed on read.
// This is the CONSUMER side of the hand-off.
func (s *AsyncService) AsyncResult(ctx context.Context, requestID string) (*Assessment, error) {
	if s.queue == nil {
		return nil, errors.New(errors.ErrInternal, "Chức năng chấm điểm bất đồng bộ chưa được bật")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, errors.Validation("Thiếu mã yêu cầu")
	}

	s.log.Debug().
		Str("request_id", requestID).
		Dur("timeout", s.waitTimeout).
		Msg("Waiting for assessment result")

	data, err := s.queue.Pop(ctx, resultKeyPrefix+requestID, s.waitTimeout)
	if stderrors.Is(err, client.ErrQueueTimeout) {
		s.log.Warn().Str("request_id", requestID).Msg("Assessment result not ready")
		return nil, errors.Timeout("Kết quả chưa sẵn sàng, vui lòng thử lại")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "Không thể lấy kết quả", err)
	}

	var payload asyncPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, "Không thể đọc kết quả", err)
	}
	if payload.Error != nil {
		return nil, payload.Error
	}
	if payload.Assessment == nil {
		return nil, errors.Internal("Không thể đọc kết quả")
	}
	return payload.Assessment, nil
}
