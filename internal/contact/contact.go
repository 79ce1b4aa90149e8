// Package contact validates contact form submissions and hands them to
// the configured delivery channel.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"real-estate-site/internal/logging"
)

// ErrInvalidMessage wraps every validation failure returned by Submit.
var ErrInvalidMessage = errors.New("invalid contact message")

// Message is one contact form submission.
type Message struct {
	Name       string    `json:"name" validate:"required,max=200"`
	Email      string    `json:"email" validate:"required,email,max=254"`
	Phone      string    `json:"phone" validate:"omitempty,max=40"`
	Message    string    `json:"message" validate:"required,max=5000"`
	PropertyID int       `json:"property_id,omitempty" validate:"gte=0"`
	Locale     string    `json:"locale,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// Sink delivers a validated message.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
	Name() string
}

// FieldError names a field that failed validation and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every failing field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Rule)
	}
	return "invalid contact message: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidMessage }

type Service struct {
	sink     Sink
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(sink Sink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		sink:     sink,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit trims and validates msg, then delivers it.
func (s *Service) Submit(ctx context.Context, msg Message) error {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Phone = strings.TrimSpace(msg.Phone)
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now().UTC()
	}

	if err := s.validate.Struct(msg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := &ValidationError{}
			for _, fe := range verrs {
				out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
			return out
		}
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	logger := logging.FromContext(ctx, s.logger).With("sink", s.sink.Name())
	start := time.Now()
	if err := s.sink.Deliver(ctx, msg); err != nil {
		logger.Error("contact delivery failed", "err", err)
		return fmt.Errorf("deliver contact message: %w", err)
	}
	logger.Info("contact message delivered",
		"property_id", msg.PropertyID,
		"duration", time.Since(start))
	return nil
}
