package pubsub

import (
	"context"
	"testing"
	"time"

	"draftkeeper/internal/config"

	ps "cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakeClient(t *testing.T) (*ps.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := ps.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestNewPublisherInvalidProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	_, err := NewPublisher(context.Background(), cfg)
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	client, srv := newFakeClient(t)
	ctx := context.Background()
	_, err := client.CreateTopic(ctx, "download-analytics")
	require.NoError(t, err)

	pub := &PubSubPublisher{client: client}
	msgID, err := pub.Publish(ctx, "download-analytics", []byte(`{"draft_id":"d1"}`), map[string]string{"event_type": "template_download"})
	require.NoError(t, err)
	assert.NotEmpty(t, msgID)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"draft_id":"d1"}`, string(msgs[0].Data))
	assert.Equal(t, "template_download", msgs[0].Attributes["event_type"])
}

func TestPublishUnknownTopic(t *testing.T) {
	client, _ := newFakeClient(t)
	pub := &PubSubPublisher{client: client}
	_, err := pub.Publish(context.Background(), "missing", []byte(`{}`), nil)
	assert.Error(t, err)
}

func TestEnsureAnalyticsResources(t *testing.T) {
	client, _ := newFakeClient(t)
	ctx := context.Background()

	require.NoError(t, EnsureAnalyticsResources(ctx, client, "download-analytics", zerolog.Nop()))

	for _, id := range []string{"download-analytics", "download-analytics-dlq"} {
		ok, err := client.Topic(id).Exists(ctx)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
	cfg, err := client.Subscription("download-analytics-sub").Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.AckDeadline)
	require.NotNil(t, cfg.DeadLetterPolicy)
	assert.Equal(t, 5, cfg.DeadLetterPolicy.MaxDeliveryAttempts)

	// Running again is a no-op.
	require.NoError(t, EnsureAnalyticsResources(ctx, client, "download-analytics", zerolog.Nop()))
}

func TestEnsureAnalyticsResourcesFixesAckDeadline(t *testing.T) {
	client, _ := newFakeClient(t)
	ctx := context.Background()

	topic, err := client.CreateTopic(ctx, "events-dlq")
	require.NoError(t, err)
	_, err = client.CreateSubscription(ctx, "events-dlq-sub", ps.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
		RetryPolicy: analyticsRetry,
	})
	require.NoError(t, err)

	require.NoError(t, EnsureAnalyticsResources(ctx, client, "events", zerolog.Nop()))

	cfg, err := client.Subscription("events-dlq-sub").Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.AckDeadline)
}
