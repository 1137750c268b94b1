// Package worker consumes order-completed messages and resolves the user each
// order belongs to.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/pkg/helpers"
)

// OrderCompleted is the message body published by the order service.
type OrderCompleted struct {
	EmailAddress string `json:"emailAddress"`
	OrderID      string `json:"orderId"`
}

// UserLookup resolves users. *application.Service satisfies it.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
}

// Outcome records what was done with a delivery.
type Outcome int

const (
	Acked Outcome = iota
	Requeued
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Requeued:
		return "requeued"
	case Dropped:
		return "dropped"
	default:
		return "acked"
	}
}

type OrderCompletedWorker struct {
	users   UserLookup
	logger  *logrus.Logger
	timeout time.Duration
}

func NewOrderCompletedWorker(users UserLookup, logger *logrus.Logger, timeout time.Duration) *OrderCompletedWorker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OrderCompletedWorker{users: users, logger: logger, timeout: timeout}
}

// Run handles deliveries one at a time until ctx is done or the channel closes.
func (w *OrderCompletedWorker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle processes a single delivery and settles it. Malformed bodies are
// dropped, storage failures requeued, unknown users acked.
func (w *OrderCompletedWorker) Handle(ctx context.Context, d amqp.Delivery) Outcome {
	var msg OrderCompleted
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		helpers.LogWarn(w.logger, "bad order-completed message", err, logrus.Fields{"delivery_tag": d.DeliveryTag})
		return w.settle(d, Dropped)
	}
	if strings.TrimSpace(msg.EmailAddress) == "" || strings.TrimSpace(msg.OrderID) == "" {
		helpers.LogWarn(w.logger, "incomplete order-completed message", nil, logrus.Fields{"delivery_tag": d.DeliveryTag})
		return w.settle(d, Dropped)
	}

	fields := logrus.Fields{"order_id": msg.OrderID, "email": msg.EmailAddress}

	c, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	u, err := w.users.GetUserByEmail(c, msg.EmailAddress)
	switch {
	case err == nil:
		fields["tier"] = u.Tier().String()
		helpers.LogInfo(w.logger, "order completed", fields)
		return w.settle(d, Acked)
	case errors.Is(err, apperror.ErrUserDoesNotExist):
		helpers.LogWarn(w.logger, "order completed for unknown user", nil, fields)
		return w.settle(d, Acked)
	case errors.Is(err, apperror.ErrDatabase), errors.Is(err, context.DeadlineExceeded):
		helpers.LogError(w.logger, "could not resolve order user, requeueing", err, fields)
		return w.settle(d, Requeued)
	default:
		helpers.LogError(w.logger, "could not resolve order user", err, fields)
		return w.settle(d, Dropped)
	}
}

func (w *OrderCompletedWorker) settle(d amqp.Delivery, o Outcome) Outcome {
	var err error
	switch o {
	case Acked:
		err = d.Ack(false)
	case Requeued:
		err = d.Nack(false, true)
	case Dropped:
		err = d.Nack(false, false)
	}
	if err != nil {
		helpers.LogError(w.logger, "could not settle delivery", err, logrus.Fields{
			"delivery_tag": d.DeliveryTag,
			"outcome":      o.String(),
		})
	}
	return o
}
