package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type retry struct {
	id         int64
	retryCount int
	lastError  string
	next       time.Time
}

type fakeRepo struct {
	mu       sync.Mutex
	pending  []outbox.Message
	deleted  []int64
	retries  []retry
	fetchErr error
}

func (f *fakeRepo) Insert(context.Context, outbox.Message) error { return nil }

func (f *fakeRepo) GetPendingMessages(context.Context, int) ([]outbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	msgs := f.pending
	f.pending = nil

	return msgs, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *fakeRepo) UpdateRetry(_ context.Context, id int64, retryCount int, lastError string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries = append(f.retries, retry{id: id, retryCount: retryCount, lastError: lastError, next: next})

	return nil
}

func (f *fakeRepo) snapshot() ([]int64, []retry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]int64(nil), f.deleted...), append([]retry(nil), f.retries...)
}

type fakePublisher struct {
	mu      sync.Mutex
	failFor map[int]bool
	bodies  []string
}

func (p *fakePublisher) Publish(_, routingKey, _ string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failFor[len(body)] {
		return errors.New("broker unavailable")
	}
	p.bodies = append(p.bodies, routingKey+":"+string(body))

	return nil
}

var fixedNow = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestProcessMessages(t *testing.T) {
	repo := &fakeRepo{pending: []outbox.Message{
		{ID: 1, RoutingKey: "orders.audit", Payload: []byte("ok"), MaxRetries: 5},
		{ID: 2, RoutingKey: "orders.audit", Payload: []byte("fail"), RetryCount: 1, MaxRetries: 5},
	}}
	pub := &fakePublisher{failFor: map[int]bool{4: true}}
	w := NewWorker(repo, pub, WithClock(func() time.Time { return fixedNow }))

	w.processMessages(context.Background())

	deleted, retries := repo.snapshot()
	assert.Equal(t, []int64{1}, deleted)
	require.Len(t, retries, 1)
	assert.Equal(t, int64(2), retries[0].id)
	assert.Equal(t, 2, retries[0].retryCount)
	assert.Equal(t, "broker unavailable", retries[0].lastError)
	assert.Equal(t, fixedNow.Add(120*time.Second), retries[0].next)
	assert.Equal(t, []string{"orders.audit:ok"}, pub.bodies)
}

func TestBackoff(t *testing.T) {
	w := NewWorker(&fakeRepo{}, &fakePublisher{})

	assert.Equal(t, 60*time.Second, w.backoff(1))
	assert.Equal(t, 120*time.Second, w.backoff(2))
	assert.Equal(t, 240*time.Second, w.backoff(3))
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{pending: []outbox.Message{{ID: 9, Payload: []byte("x"), MaxRetries: 5}}}
	w := NewWorker(repo, &fakePublisher{}, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		deleted, _ := repo.snapshot()

		return len(deleted) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStart_Stop(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("db down")}
	w := NewWorker(repo, &fakePublisher{}, WithPollInterval(time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	w.Stop()
	<-done
}
