package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/vntutor_service/internal/client"
	"github.com/windfall/vntutor_service/internal/errors"
	"github.com/windfall/vntutor_service/internal/transcription"
)

// memQueue mimics RPUSH/BLPOP semantics with buffered channels.
type memQueue struct {
	mu    sync.Mutex
	lists map[string]chan []byte
	ttls  map[string]time.Duration
}

func newMemQueue() *memQueue {
	return &memQueue{lists: map[string]chan []byte{}, ttls: map[string]time.Duration{}}
}

func (q *memQueue) list(key string) chan []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.lists[key]
	if !ok {
		ch = make(chan []byte, 4)
		q.lists[key] = ch
	}
	return ch
}

func (q *memQueue) Push(_ context.Context, key string, value []byte, ttl time.Duration) error {
	q.mu.Lock()
	q.ttls[key] = ttl
	q.mu.Unlock()
	q.list(key) <- value
	return nil
}

func (q *memQueue) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	select {
	case v := <-q.list(key):
		return v, nil
	case <-time.After(timeout):
		return nil, client.ErrQueueTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestAsync(t *testing.T, engine transcription.Engine, q ResultQueue) *AsyncService {
	t.Helper()
	return NewAsyncService(newTestService(t, engine), q, zerolog.Nop(),
		WithWaitTimeout(2*time.Second),
		WithResultTTL(30*time.Second),
	)
}

func TestAsyncRoundTrip(t *testing.T) {
	q := newMemQueue()
	svc := newTestAsync(t, transcription.NewMockEngine("xin chào"), q)
	ctx := context.Background()

	ticket, err := svc.SubmitAsync(ctx, AssessRequest{Audio: wav(), TargetText: "xin chào"})
	if err != nil {
		t.Fatalf("SubmitAsync: %v", err)
	}
	if len(ticket.RequestID) != len("req_")+8 {
		t.Fatalf("request id = %q", ticket.RequestID)
	}

	res, err := svc.AsyncResult(ctx, ticket.RequestID)
	if err != nil {
		t.Fatalf("AsyncResult: %v", err)
	}
	if res.RequestID != ticket.RequestID || res.Pronunciation.OverallScore != 100 {
		t.Fatalf("res = %+v", res)
	}

	q.mu.Lock()
	ttl := q.ttls[resultKeyPrefix+ticket.RequestID]
	q.mu.Unlock()
	if ttl != 30*time.Second {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestAsyncValidatesBeforeSpawning(t *testing.T) {
	svc := newTestAsync(t, transcription.NewMockEngine("xin chào"), newMemQueue())

	_, err := svc.SubmitAsync(context.Background(), AssessRequest{Audio: wav()})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestAsyncCarriesFailure(t *testing.T) {
	svc := newTestAsync(t, failingEngine{}, newMemQueue())
	ctx := context.Background()

	ticket, err := svc.SubmitAsync(ctx, AssessRequest{Audio: wav(), TargetText: "xin chào"})
	if err != nil {
		t.Fatalf("SubmitAsync: %v", err)
	}
	_, err = svc.AsyncResult(ctx, ticket.RequestID)
	appErr := requireCode(t, err, errors.ErrTranscription)
	if appErr.Message != MsgTranscriptionFailed {
		t.Fatalf("message = %q", appErr.Message)
	}
}

func TestAsyncResultTimeout(t *testing.T) {
	svc := NewAsyncService(newTestService(t, transcription.NewMockEngine("")), newMemQueue(), zerolog.Nop(),
		WithWaitTimeout(20*time.Millisecond))

	_, err := svc.AsyncResult(context.Background(), "req_missing")
	appErr := requireCode(t, err, errors.ErrTimeout)
	if appErr.HTTPStatus() != 504 {
		t.Fatalf("status = %d", appErr.HTTPStatus())
	}

	_, err = svc.AsyncResult(context.Background(), " ")
	requireCode(t, err, errors.ErrValidation)
}

func TestAsyncWithoutQueue(t *testing.T) {
	svc := NewAsyncService(newTestService(t, transcription.NewMockEngine("")), nil, zerolog.Nop())

	_, err := svc.SubmitAsync(context.Background(), AssessRequest{Audio: wav(), TargetText: "x"})
	requireCode(t, err, errors.ErrInternal)
}
