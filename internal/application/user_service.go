package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	repo "github.com/oksasatya/users-service/internal/domain/repository"
	"github.com/oksasatya/users-service/pkg/helpers"
)

const instrumentationName = "github.com/oksasatya/users-service/internal/application"

// EventPublisher delivers domain events. *helpers.RabbitPublisher satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserRegistered is published after a user has been stored.
type UserRegistered struct {
	EmailAddress string    `json:"emailAddress"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type Service struct {
	Repo      repo.UserRepository
	Publisher EventPublisher
	Logger    *logrus.Logger

	tracer         trace.Tracer
	registrations  metric.Int64Counter
	logins         metric.Int64Counter
	lookups        metric.Int64Counter
	publishTimeout time.Duration
}

type Option func(*Service)

// WithPublisher enables the user-registered event. A nil publisher disables it.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.Publisher = p }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		if mp != nil {
			s.initMetrics(mp)
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(instrumentationName)
		}
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func NewService(repo repo.UserRepository, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		Repo:           repo,
		Logger:         logger,
		tracer:         otel.Tracer(instrumentationName),
		publishTimeout: 5 * time.Second,
	}
	s.initMetrics(noop.NewMeterProvider())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) initMetrics(mp metric.MeterProvider) {
	m := mp.Meter(instrumentationName)
	// instrument creation only fails on invalid names; ours are constant.
	s.registrations, _ = m.Int64Counter("users_registrations",
		metric.WithDescription("User registrations by outcome"))
	s.logins, _ = m.Int64Counter("users_logins",
		metric.WithDescription("Login attempts by outcome"))
	s.lookups, _ = m.Int64Counter("users_lookups",
		metric.WithDescription("User detail lookups by outcome"))
}

// Register validates the input, hashes the password and stores the new user.
func (s *Service) Register(ctx context.Context, email, name, password string) (*entity.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Register")
	defer span.End()

	// hashing is expensive; skip it for requests nobody is waiting on
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, span, s.registrations, err)
	}

	u, err := entity.NewUser(email, name, password)
	if err != nil {
		return nil, s.fail(ctx, span, s.registrations, err)
	}
	span.SetAttributes(attribute.String("user.email", u.EmailAddress()))

	if err := s.Repo.Store(ctx, u); err != nil {
		return nil, s.fail(ctx, span, s.registrations, err)
	}

	s.registrations.Add(ctx, 1, metric.WithAttributes(outcome("ok")))
	s.publishRegistered(ctx, u)

	return u, nil
}

// Login returns the user when password matches the stored hash.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.Login")
	defer span.End()

	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.fail(ctx, span, s.logins, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, span, s.logins, err)
	}
	if err := u.VerifyPassword(password); err != nil {
		return nil, s.fail(ctx, span, s.logins, err)
	}

	s.logins.Add(ctx, 1, metric.WithAttributes(outcome("ok")))
	return u, nil
}

// GetUserByEmail looks a user up without checking credentials.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := s.tracer.Start(ctx, "users.GetUserByEmail")
	defer span.End()

	u, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.fail(ctx, span, s.lookups, err)
	}

	s.lookups.Add(ctx, 1, metric.WithAttributes(outcome("ok")))
	return u, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, counter metric.Int64Counter, err error) error {
	kind := apperror.KindOf(err)
	if errors.Is(err, apperror.ErrValidation) {
		counter.Add(ctx, 1, metric.WithAttributes(outcome("invalid")))
	} else {
		counter.Add(ctx, 1, metric.WithAttributes(outcome(kind.String())))
	}

	// expected outcomes are not span errors
	switch kind {
	case apperror.KindDatabase:
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
	case apperror.KindApplication:
		if !errors.Is(err, apperror.ErrValidation) {
			span.RecordError(err)
			span.SetStatus(codes.Error, kind.String())
		}
	}

	return err
}

func (s *Service) publishRegistered(ctx context.Context, u *entity.User) {
	if s.Publisher == nil {
		return
	}

	// the request may already be finished; the event must not depend on it
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := UserRegistered{EmailAddress: u.EmailAddress(), Name: u.Name(), RegisteredAt: time.Now().UTC()}
	if err := s.Publisher.PublishJSON(pubCtx, event); err != nil && s.Logger != nil {
		helpers.LogWarn(s.Logger, "publish user-registered failed", err, logrus.Fields{"email": u.EmailAddress()})
	}
}

func outcome(v string) attribute.KeyValue {
	return attribute.String("outcome", v)
}
