package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/internal/worker"
)

type ackCall struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type lookupFunc func(ctx context.Context, email string) (*entity.User, error)

func (f lookupFunc) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return f(ctx, email)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func delivery(ack amqp.Acknowledger, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body)}
}

func TestHandleOutcomes(t *testing.T) {
	users := lookupFunc(func(_ context.Context, email string) (*entity.User, error) {
		switch email {
		case "a@b.com":
			return entity.UserFromStorage("a@b.com", "James", "h"), nil
		case "down@b.com":
			return nil, apperror.Database(errors.New("conn reset"), "select")
		case "weird@b.com":
			return nil, apperror.Application("unexpected")
		default:
			return nil, apperror.ErrUserDoesNotExist
		}
	})
	w := worker.NewOrderCompletedWorker(users, quietLogger(), time.Second)

	cases := []struct {
		name    string
		body    string
		outcome worker.Outcome
		call    ackCall
	}{
		{"known user", `{"emailAddress":"a@b.com","orderId":"o-1"}`, worker.Acked, ackCall{tag: 1, ack: true}},
		{"unknown user", `{"emailAddress":"x@b.com","orderId":"o-2"}`, worker.Acked, ackCall{tag: 1, ack: true}},
		{"database down", `{"emailAddress":"down@b.com","orderId":"o-3"}`, worker.Requeued, ackCall{tag: 1, requeue: true}},
		{"application error", `{"emailAddress":"weird@b.com","orderId":"o-4"}`, worker.Dropped, ackCall{tag: 1}},
		{"malformed json", `{"emailAddress":`, worker.Dropped, ackCall{tag: 1}},
		{"missing order id", `{"emailAddress":"a@b.com"}`, worker.Dropped, ackCall{tag: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			got := w.Handle(context.Background(), delivery(ack, 1, tc.body))
			require.Equal(t, tc.outcome, got)
			require.Equal(t, []ackCall{tc.call}, ack.calls)
		})
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	users := lookupFunc(func(_ context.Context, email string) (*entity.User, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, email)
		return entity.UserFromStorage(email, "U", "h"), nil
	})
	w := worker.NewOrderCompletedWorker(users, quietLogger(), time.Second)

	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- delivery(ack, 1, `{"emailAddress":"a@b.com","orderId":"1"}`)
	deliveries <- delivery(ack, 2, `{"emailAddress":"c@d.com","orderId":"2"}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, deliveries) }()

	require.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return len(ack.calls) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []string{"a@b.com", "c@d.com"}, seen)
}

func TestRunReturnsWhenChannelCloses(t *testing.T) {
	w := worker.NewOrderCompletedWorker(lookupFunc(func(context.Context, string) (*entity.User, error) {
		return nil, apperror.ErrUserDoesNotExist
	}), quietLogger(), 0)

	deliveries := make(chan amqp.Delivery)
	close(deliveries)
	require.Error(t, w.Run(context.Background(), deliveries))
}
