package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/identity"
	"draftkeeper/internal/model"
	"draftkeeper/internal/repository"

	"github.com/rs/zerolog"
)

// AccountService covers registration, sessions and the caller's own profile.
type AccountService interface {
	SignUp(ctx context.Context, email, password, name string) (*model.Session, *model.UserProfile, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, *model.UserProfile, error)
	SignOut(ctx context.Context, accessToken string) error
	// CurrentProfile loads the caller's profile, provisioning it on first use,
	// and applies any pending period reset.
	CurrentProfile(ctx context.Context, id model.Identity) (*model.UserProfile, error)
	UpdateName(ctx context.Context, id model.Identity, name string) (*model.UserProfile, error)
}

type accountService struct {
	provider identity.Provider
	users    repository.UserRepository
	engine   *entitlement.Engine
	logger   zerolog.Logger
}

func NewAccountService(provider identity.Provider, users repository.UserRepository, engine *entitlement.Engine, logger zerolog.Logger) AccountService {
	return &accountService{
		provider: provider,
		users:    users,
		engine:   engine,
		logger:   logger.With().Str("service", "AccountService").Logger(),
	}
}

func (s *accountService) SignUp(ctx context.Context, email, password, name string) (*model.Session, *model.UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	sess, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil && !errors.Is(err, identity.ErrConfirmationRequired) {
		s.logger.Warn().Err(err).Str("email", email).Msg("Sign-up failed")
		return nil, nil, err
	}
	confirmErr := err
	if sess == nil || sess.Identity.UserID == "" {
		return nil, nil, errors.New("identity provider returned no user")
	}

	profile, err := s.provision(ctx, sess.Identity)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info().Str("user_id", profile.ID).Msg("User registered")
	return sess, profile, confirmErr
}

func (s *accountService) SignIn(ctx context.Context, email, password string) (*model.Session, *model.UserProfile, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.CurrentProfile(ctx, sess.Identity)
	if err != nil {
		return nil, nil, err
	}
	return sess, profile, nil
}

func (s *accountService) SignOut(ctx context.Context, accessToken string) error {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Error().Err(err).Msg("Sign-out failed")
		return err
	}
	return nil
}

func (s *accountService) CurrentProfile(ctx context.Context, id model.Identity) (*model.UserProfile, error) {
	p, err := s.users.GetProfile(ctx, id.UserID)
	if errors.Is(err, entitlement.ErrProfileNotFound) {
		s.logger.Info().Str("user_id", id.UserID).Msg("No profile for identity, provisioning default")
		p, err = s.provision(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluateAndApplyReset(ctx, p)
}

func (s *accountService) UpdateName(ctx context.Context, id model.Identity, name string) (*model.UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p, err := s.CurrentProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	next := p.Clone()
	next.Name = name
	saved, err := s.users.UpdateProfile(ctx, next, model.FieldName)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to update profile name")
		return nil, err
	}
	return saved, nil
}

func (s *accountService) provision(ctx context.Context, id model.Identity) (*model.UserProfile, error) {
	name := id.Name
	if name == "" {
		name = strings.SplitN(id.Email, "@", 2)[0]
	}
	p, err := s.users.CreateProfile(ctx, model.NewUserProfile(id.UserID, id.Email, name, s.engine.Now()))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to provision profile")
		return nil, err
	}
	return p, nil
}
