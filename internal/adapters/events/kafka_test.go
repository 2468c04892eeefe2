package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	msgs     []kafka.Message
	attempts int
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if w.failures > 0 {
		w.failures--
		return errors.New("leader not available")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher(w MessageWriter, attempts int) *KafkaPublisher {
	p := NewKafkaPublisherWithWriter(w, KafkaConfig{MaxAttempts: attempts})
	p.backoff = time.Millisecond
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPublishBriefWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, 3)

	brief := &domain.ProductionBrief{
		Persona:        domain.PersonaBusyBrenda,
		FitScore:       8,
		Recommendation: domain.RecommendDeploy,
	}
	require.NoError(t, p.PublishBrief(context.Background(), "run-1", brief))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "Busy Brenda", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, "run-1", string(msg.Headers[0].Value))

	var ev BriefEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, domain.RunID("run-1"), ev.RunID)
	assert.Equal(t, 8, ev.Brief.FitScore)
	assert.True(t, ev.PublishedAt.Equal(p.now()))
}

func TestPublishBriefRetries(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newTestPublisher(w, 3)

	require.NoError(t, p.PublishBrief(context.Background(), "run-1", &domain.ProductionBrief{Persona: domain.PersonaUrbanUro}))
	assert.Equal(t, 3, w.attempts)
	assert.Len(t, w.msgs, 1)
}

func TestPublishBriefGivesUp(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newTestPublisher(w, 2)

	err := p.PublishBrief(context.Background(), "run-1", &domain.ProductionBrief{Persona: domain.PersonaUrbanUro})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 2, w.attempts)
}

func TestPublishBriefStopsOnCancel(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newTestPublisher(w, 5)
	p.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.PublishBrief(ctx, "run-1", &domain.ProductionBrief{Persona: domain.PersonaUrbanUro})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, w.attempts)
}

func TestPublishNilBrief(t *testing.T) {
	p := newTestPublisher(&fakeWriter{}, 1)
	assert.Error(t, p.PublishBrief(context.Background(), "run-1", nil))
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, 1)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	var nilPub *KafkaPublisher
	assert.NoError(t, nilPub.Close())
}
