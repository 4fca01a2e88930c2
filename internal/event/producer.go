package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/wishlist-service/internal/domain"
	pkgkafka "github.com/utafrali/wishlist-service/pkg/kafka"
	"github.com/utafrali/wishlist-service/pkg/logger"
)

// Kafka topics for wishlist domain events.
var (
	TopicWishlistCreated      = pkgkafka.Topic("wishlist", "created")
	TopicWishlistProductAdded = pkgkafka.Topic("wishlist", "product_added")
	TopicWishlistCleared      = pkgkafka.Topic("wishlist", "cleared")
)

// Aggregate type constant.
const AggregateTypeWishlist = "wishlist"

// Source identifier for events originating from the wishlist service.
const SourceWishlistService = "wishlist-service"

// MetadataOwnerEmail names the metadata entry holding the wishlist owner.
const MetadataOwnerEmail = "owner_email"

// clearedAggregateID keys wishlist.cleared events, which span every wishlist.
const clearedAggregateID = "*"

// WishlistCreatedData is the payload for a wishlist.created event.
type WishlistCreatedData struct {
	OwnerEmail string `json:"owner_email"`
	Name       string `json:"name"`
}

// ProductAddedData is the payload for a wishlist.product_added event.
type ProductAddedData struct {
	OwnerEmail string `json:"owner_email"`
	Name       string `json:"name"`
	ProductID  string `json:"product_id"`
}

// WishlistClearedData is the payload for a wishlist.cleared event.
type WishlistClearedData struct{}

// Publisher is the subset of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes wishlist domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the wishlist service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishWishlistCreated publishes a wishlist.created event.
func (p *Producer) PublishWishlistCreated(ctx context.Context, w *domain.Wishlist) error {
	data := WishlistCreatedData{OwnerEmail: w.User.Email, Name: w.Name}
	return p.publish(ctx, TopicWishlistCreated, w.Key(), w.User.Email, data)
}

// PublishProductAdded publishes a wishlist.product_added event.
func (p *Producer) PublishProductAdded(ctx context.Context, email, name, productID string) error {
	data := ProductAddedData{OwnerEmail: email, Name: name, ProductID: productID}
	return p.publish(ctx, TopicWishlistProductAdded, domain.Key(email, name), email, data)
}

// PublishWishlistCleared publishes a wishlist.cleared event.
func (p *Producer) PublishWishlistCleared(ctx context.Context) error {
	return p.publish(ctx, TopicWishlistCleared, clearedAggregateID, "", WishlistClearedData{})
}

// publish wraps data in an envelope. A non-empty owner is attached as
// owner_email metadata.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, owner string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeWishlist, SourceWishlistService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if owner != "" {
		event.WithMetadata(MetadataOwnerEmail, owner)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
