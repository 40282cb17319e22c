package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rbeiter/authcore/internal/domain"
	pkgkafka "github.com/rbeiter/authcore/pkg/kafka"
)

// Kafka topic constants for authentication domain events.
const (
	TopicUserRegistered = "auth.user.registered"
	TopicUserSignedIn   = "auth.user.signed_in"
	TopicUserSignedOut  = "auth.user.signed_out"
	TopicUserDeleted    = "auth.user.deleted"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from the auth service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserSignedInData is the payload for a user.signed_in event.
type UserSignedInData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// UserSignedOutData is the payload for a user.signed_out event.
type UserSignedOutData struct {
	UserID string `json:"user_id"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	UserID string `json:"user_id"`
}

// Producer publishes authentication domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, cred *domain.Credential) error {
	data := UserRegisteredData{
		ID:    cred.ID,
		Email: cred.Email,
		Role:  cred.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, cred.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", cred.ID),
		slog.String("email", cred.Email),
	)

	return nil
}

// PublishUserSignedIn publishes a user.signed_in event.
func (p *Producer) PublishUserSignedIn(ctx context.Context, userID, email string) error {
	data := UserSignedInData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserSignedIn, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.signed_in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserSignedIn, event); err != nil {
		return fmt.Errorf("publish user.signed_in event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.signed_in event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishUserSignedOut publishes a user.signed_out event.
func (p *Producer) PublishUserSignedOut(ctx context.Context, userID string) error {
	data := UserSignedOutData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicUserSignedOut, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.signed_out event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserSignedOut, event); err != nil {
		return fmt.Errorf("publish user.signed_out event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.signed_out event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, userID string) error {
	data := UserDeletedData{UserID: userID}

	event, err := pkgkafka.NewEvent(TopicUserDeleted, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeleted, event); err != nil {
		return fmt.Errorf("publish user.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.deleted event",
		slog.String("user_id", userID),
	)

	return nil
}
