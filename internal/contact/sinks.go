package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"real-estate-site/internal/logging"
)

// UpstreamError is a non-2xx answer from a delivery backend.
type UpstreamError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Sink, e.StatusCode, e.Body)
}

// HTTPSink posts the message as JSON to the listings backend's contact endpoint.
type HTTPSink struct {
	url    string
	client *http.Client
}

func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-ID", traceID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UpstreamError{Sink: "contact api", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

// Publisher is the part of *amqp.Channel the AMQP sink uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes the message to a RabbitMQ exchange.
type AMQPSink struct {
	publisher  Publisher
	exchange   string
	routingKey string
}

func NewAMQPSink(publisher Publisher, exchange, routingKey string) *AMQPSink {
	return &AMQPSink{publisher: publisher, exchange: exchange, routingKey: routingKey}
}

// DialAMQP connects to RabbitMQ, declares a durable topic exchange and
// returns a sink publishing to it. The returned func closes the connection.
func DialAMQP(url, exchange, routingKey string) (*AMQPSink, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if exchange != "" {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
		}
	}
	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return NewAMQPSink(ch, exchange, routingKey), closeFn, nil
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.SentAt,
		Headers:      make(amqp.Table),
	}
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		publishing.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.publisher.PublishWithContext(publishCtx, s.exchange, s.routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// MailSender is the part of *sendgrid.Client the email sink uses.
type MailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSink emails the message to the sales inbox.
type SendgridSink struct {
	client    MailSender
	fromName  string
	fromEmail string
	toEmail   string
	sandbox   bool
}

func NewSendgridSink(client MailSender, fromName, fromEmail, toEmail string, sandbox bool) *SendgridSink {
	return &SendgridSink{
		client:    client,
		fromName:  fromName,
		fromEmail: fromEmail,
		toEmail:   toEmail,
		sandbox:   sandbox,
	}
}

// NewSendgridClient returns the real SendGrid API client.
func NewSendgridClient(apiKey string) MailSender {
	return sendgrid.NewSendClient(apiKey)
}

func (s *SendgridSink) Name() string { return "sendgrid" }

func (s *SendgridSink) Deliver(_ context.Context, msg Message) error {
	email := s.compose(msg)

	resp, err := s.client.Send(email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Sink: "sendgrid", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

func (s *SendgridSink) compose(msg Message) *mail.SGMailV3 {
	subject := "New enquiry from " + msg.Name
	if msg.PropertyID > 0 {
		subject = fmt.Sprintf("New enquiry about property #%d from %s", msg.PropertyID, msg.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Email: %s\n", msg.Email)
	if msg.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", msg.Phone)
	}
	if msg.PropertyID > 0 {
		fmt.Fprintf(&b, "Property: %d\n", msg.PropertyID)
	}
	fmt.Fprintf(&b, "\n%s\n", msg.Message)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("Sales", s.toEmail)
	email := mail.NewSingleEmail(from, subject, to, b.String(), "")
	email.SetReplyTo(mail.NewEmail(msg.Name, msg.Email))
	if s.sandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		email.SetMailSettings(ms)
	}
	return email
}
