package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/VaibhavChawla151003/youtube-backend/internal/domain"
	pkgkafka "github.com/VaibhavChawla151003/youtube-backend/pkg/kafka"
	"github.com/VaibhavChawla151003/youtube-backend/pkg/logger"
)

// Kafka topic constants for user domain events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserLoggedIn   = pkgkafka.Topic("user", "logged_in")
	TopicUserLoggedOut  = pkgkafka.Topic("user", "logged_out")
)

// Source identifier for events originating from this service.
const SourceUserService = "youtube-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// SessionData is the payload for user.logged_in and user.logged_out events.
type SessionData struct {
	UserID string `json:"user_id"`
}

// publisher is the part of *pkgkafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes user domain events to Kafka. A nil *Producer drops
// every event, which is how it runs when Kafka is disabled.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. A nil kafka producer yields a
// nil *Producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	if kafka == nil {
		return nil
	}
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, data)
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedIn, userID, SessionData{UserID: userID})
}

// PublishUserLoggedOut publishes a user.logged_out event.
func (p *Producer) PublishUserLoggedOut(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicUserLoggedOut, userID, SessionData{UserID: userID})
}

func (p *Producer) publish(ctx context.Context, topic, userID string, data any) error {
	if p == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, userID, SourceUserService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("user_id", userID),
	)
	return nil
}
