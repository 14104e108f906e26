package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shenikar/event_rescue/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanQueue - очередь в памяти вместо Redis
type chanQueue struct {
	ch chan []byte
}

func newChanQueue() *chanQueue { return &chanQueue{ch: make(chan []byte, 8)} }

func (q *chanQueue) Push(_ context.Context, payload []byte) error {
	q.ch <- payload
	return nil
}

func (q *chanQueue) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p := <-q.ch:
		return p, nil
	}
}

type results struct {
	mu  sync.Mutex
	got []string
}

func (r *results) add(s string) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
}

func (r *results) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func newTestWorker(q Queue, cfg WorkerConfig) (*Worker, *results) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	res := &results{}
	return NewWorker(q, cfg, logger, WithResultHook(res.add)), res
}

func testEvent() Event {
	return Event{
		Incident: models.Incident{ID: "inc-1", Type: models.TypeVoiceScream, Severity: 0.8, Confidence: 80, Zone: "Mobile Device"},
		Reason:   ReasonVoiceAlert,
		Team:     TeamSecurity,
	}
}

func TestProcess_SignsPayload(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w, res := newTestWorker(newChanQueue(), WorkerConfig{URL: srv.URL, Secret: "s3cret", Timeout: time.Second, MaxRetries: 3})
	payload, err := json.Marshal(testEvent())
	require.NoError(t, err)

	w.Process(context.Background(), payload)

	assert.Equal(t, payload, gotBody)
	assert.Equal(t, Sign(payload, "s3cret"), gotSig)
	assert.Equal(t, []string{ResultDelivered}, res.list())
}

func TestProcess_RetriesThenDelivers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w, res := newTestWorker(newChanQueue(), WorkerConfig{URL: srv.URL, Timeout: time.Second, MaxRetries: 3, BaseDelay: time.Millisecond})
	payload, _ := json.Marshal(testEvent())

	w.Process(context.Background(), payload)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{ResultDelivered}, res.list())
}

func TestProcess_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w, res := newTestWorker(newChanQueue(), WorkerConfig{URL: srv.URL, Timeout: time.Second, MaxRetries: 2, BaseDelay: time.Millisecond})
	payload, _ := json.Marshal(testEvent())

	w.Process(context.Background(), payload)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{ResultFailed}, res.list())
}

func TestProcess_SkipsWithoutURLAndMalformed(t *testing.T) {
	w, res := newTestWorker(newChanQueue(), WorkerConfig{})
	payload, _ := json.Marshal(testEvent())

	w.Process(context.Background(), payload)
	w.Process(context.Background(), []byte("{not json"))

	assert.Equal(t, []string{ResultSkipped, ResultMalformed}, res.list())
}

func TestWorker_StartConsumesQueue(t *testing.T) {
	delivered := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		delivered <- ev.Incident.ID
	}))
	defer srv.Close()

	q := newChanQueue()
	w, _ := newTestWorker(q, WorkerConfig{URL: srv.URL, Timeout: time.Second, MaxRetries: 1})
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	require.NoError(t, NewQueuePublisher(q).Publish(ctx, testEvent()))

	select {
	case id := <-delivered:
		assert.Equal(t, "inc-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	cancel()
	w.Wait()
}
