package async

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/schema"
)

type stubService struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
}

func (s *stubService) Extract(_ context.Context, req extract.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFor[req.Document.ID] {
		return "", fmt.Errorf("simulated outage")
	}
	return `{"total": 1}`, nil
}

type memSink struct {
	mu      sync.Mutex
	results []extract.Result
}

func (m *memSink) Append(_ context.Context, res extract.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	return nil
}

func queueFixture(t *testing.T, svc extract.Service, opts ...Option) (*Queue, *extract.Board, *memSink) {
	t.Helper()
	sink := &memSink{}
	orch := extract.NewOrchestrator(svc, sink, nil)
	board := extract.NewBoard()
	return NewQueue(orch, board, nil, opts...), board, sink
}

func job(id string) Job {
	return Job{
		Document: extract.Document{ID: id, Name: id + ".png", MIMEType: "image/png", Data: []byte{1}},
		Fields:   []schema.Field{{ID: "f1", Name: "total", Type: schema.TypeNumber}},
		Model:    "m",
	}
}

func TestQueueProcessesAllJobs(t *testing.T) {
	svc := &stubService{}
	q, board, sink := queueFixture(t, svc, WithWorkers(3))

	for i := 0; i < 8; i++ {
		require.NoError(t, q.Enqueue(context.Background(), job(fmt.Sprintf("doc-%d", i))))
	}
	q.Shutdown(context.Background())

	states := board.Snapshot()
	require.Len(t, states, 8)
	for id, st := range states {
		assert.Equal(t, extract.StatusCompleted, st.Status, "doc %s", id)
	}
	assert.Len(t, sink.results, 8)
	assert.Equal(t, 8, svc.calls)
}

func TestQueueDocumentsFailIndependently(t *testing.T) {
	svc := &stubService{failFor: map[string]bool{"bad": true}}
	q, board, sink := queueFixture(t, svc, WithWorkers(2))

	require.NoError(t, q.Enqueue(context.Background(), job("good")))
	require.NoError(t, q.Enqueue(context.Background(), job("bad")))
	q.Shutdown(context.Background())

	good, _ := board.Get("good")
	assert.Equal(t, extract.StatusCompleted, good.Status)

	bad, _ := board.Get("bad")
	assert.Equal(t, extract.StatusError, bad.Status)
	assert.Contains(t, bad.Message, "simulated outage")

	require.Len(t, sink.results, 1)
	assert.Equal(t, "good", sink.results[0].FileID)
}

func TestQueueEnqueueAfterShutdownIsDropped(t *testing.T) {
	svc := &stubService{}
	q, board, _ := queueFixture(t, svc)
	q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), job("late")))
	_, tracked := board.Get("late")
	assert.False(t, tracked)
	assert.Equal(t, 0, svc.calls)
}

func TestQueueShutdownIsIdempotent(t *testing.T) {
	q, _, _ := queueFixture(t, &stubService{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx)
}
