package pubsub

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

const (
	topicRetention       = 7 * 24 * time.Hour
	analyticsAckDeadline = 60 * time.Second
	maxDeliveryAttempts  = 5
)

var analyticsRetry = &pubsub.RetryPolicy{
	MinimumBackoff: 10 * time.Second,
	MaximumBackoff: 600 * time.Second,
}

// EnsureAnalyticsResources creates the analytics topic, its dead-letter topic
// and a pull subscription for each. Existing subscriptions are brought in
// line with the expected ack deadline and retry policy.
func EnsureAnalyticsResources(ctx context.Context, client *pubsub.Client, topicID string, logger zerolog.Logger) error {
	dlqTopic, err := ensureTopic(ctx, client, topicID+"-dlq", logger)
	if err != nil {
		return err
	}
	topic, err := ensureTopic(ctx, client, topicID, logger)
	if err != nil {
		return err
	}

	if err := ensureSubscription(ctx, client, topicID+"-sub", pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: analyticsAckDeadline,
		RetryPolicy: analyticsRetry,
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: maxDeliveryAttempts,
		},
	}, logger); err != nil {
		return err
	}
	return ensureSubscription(ctx, client, topicID+"-dlq-sub", pubsub.SubscriptionConfig{
		Topic:       dlqTopic,
		AckDeadline: analyticsAckDeadline,
		RetryPolicy: analyticsRetry,
	}, logger)
}

func ensureTopic(ctx context.Context, client *pubsub.Client, topicID string, logger zerolog.Logger) (*pubsub.Topic, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check if topic %s exists: %w", topicID, err)
	}
	if exists {
		logger.Info().Str("topic", topicID).Msg("Topic already exists")
		return topic, nil
	}

	logger.Info().Str("topic", topicID).Dur("retention", topicRetention).Msg("Creating topic")
	topic, err = client.CreateTopicWithConfig(ctx, topicID, &pubsub.TopicConfig{RetentionDuration: topicRetention})
	if err != nil {
		return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
	}
	return topic, nil
}

func ensureSubscription(ctx context.Context, client *pubsub.Client, subID string, want pubsub.SubscriptionConfig, logger zerolog.Logger) error {
	sub := client.Subscription(subID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if subscription %s exists: %w", subID, err)
	}
	if !exists {
		logger.Info().Str("subscription", subID).Msg("Creating subscription")
		if _, err := client.CreateSubscription(ctx, subID, want); err != nil {
			return fmt.Errorf("failed to create subscription %s: %w", subID, err)
		}
		return nil
	}

	have, err := sub.Config(ctx)
	if err != nil {
		return fmt.Errorf("failed to get config for subscription %s: %w", subID, err)
	}

	var update pubsub.SubscriptionConfigToUpdate
	changed := false
	if have.AckDeadline != want.AckDeadline {
		update.AckDeadline = want.AckDeadline
		changed = true
	}
	if !sameRetry(have.RetryPolicy, want.RetryPolicy) {
		update.RetryPolicy = want.RetryPolicy
		changed = true
	}
	if !changed {
		logger.Info().Str("subscription", subID).Msg("Subscription is up to date")
		return nil
	}

	logger.Info().Str("subscription", subID).Msg("Updating subscription")
	if _, err := sub.Update(ctx, update); err != nil {
		return fmt.Errorf("failed to update subscription %s: %w", subID, err)
	}
	return nil
}

func sameRetry(a, b *pubsub.RetryPolicy) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MinimumBackoff == b.MinimumBackoff && a.MaximumBackoff == b.MaximumBackoff
}
