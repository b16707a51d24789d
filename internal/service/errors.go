package service

import (
	"errors"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrPlanSelectionRequired gates template routes until a plan is chosen.
	ErrPlanSelectionRequired = errors.New("plan selection required")
	ErrDraftNotFound         = repository.ErrDraftNotFound
	// ErrDraftUnavailable is returned for drafts that exist but are not published.
	ErrDraftUnavailable = errors.New("draft is not available")
	ErrForbidden        = errors.New("forbidden")

	ErrUnauthorized       = entitlement.ErrUnauthorized
	ErrProfileNotFound    = entitlement.ErrProfileNotFound
	ErrPersistenceFailure = entitlement.ErrPersistenceFailure
	ErrPlanUnknown        = entitlement.ErrPlanUnknown
)
