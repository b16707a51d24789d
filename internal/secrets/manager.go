package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"draftkeeper/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Accessor reads the latest version of a named secret.
type Accessor interface {
	Access(ctx context.Context, name string) (string, error)
}

type secretManager struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManager connects to Secret Manager in the configured project.
func NewSecretManager(ctx context.Context, cfg *config.Config) (Accessor, func() error, error) {
	if cfg.GCPProjectID == "" {
		return nil, nil, errors.New("GCP project ID is not set")
	}
	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretManager{client: client, projectID: cfg.GCPProjectID}, client.Close, nil
}

func (s *secretManager) Access(ctx context.Context, name string) (string, error) {
	resourceName := name
	if !strings.HasPrefix(name, "projects/") {
		resourceName = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)
	}
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resourceName})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

// ResolveStripeKey returns the Stripe API key. A configured secret name wins
// over a literal key.
func ResolveStripeKey(ctx context.Context, cfg *config.Config, accessor Accessor) (string, error) {
	if cfg.StripeSecretName == "" {
		if cfg.StripeSecretKey == "" {
			return "", errors.New("neither STRIPE_SECRET_NAME nor STRIPE_SECRET_KEY is set")
		}
		return cfg.StripeSecretKey, nil
	}
	if accessor == nil {
		return "", errors.New("STRIPE_SECRET_NAME is set but Secret Manager is not configured")
	}
	key, err := accessor.Access(ctx, cfg.StripeSecretName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(key), nil
}
