package model

import (
	"encoding/json"
	"time"
)

// Role controls access to the admin panel. Admins bypass every entitlement check.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PlanID identifies one of the static subscription plans.
type PlanID string

const (
	PlanMonthly   PlanID = "monthly"
	PlanQuarterly PlanID = "quarterly"
	PlanYearly    PlanID = "yearly"
)

// Valid reports whether id names a known plan.
func (id PlanID) Valid() bool {
	switch id {
	case PlanMonthly, PlanQuarterly, PlanYearly:
		return true
	}
	return false
}

// PlanChoice is the plan a user has picked. The zero value means no plan
// has been chosen yet; there is no separate "cleared" state.
type PlanChoice struct {
	id PlanID
}

// NoPlanChosen returns the empty choice.
func NoPlanChosen() PlanChoice { return PlanChoice{} }

// ChoosePlan returns a choice holding id.
func ChoosePlan(id PlanID) PlanChoice { return PlanChoice{id: id} }

// Plan returns the chosen plan and whether one was chosen.
func (c PlanChoice) Plan() (PlanID, bool) { return c.id, c.id != "" }

func (c PlanChoice) Chosen() bool { return c.id != "" }

// Is reports whether the choice holds exactly id.
func (c PlanChoice) Is(id PlanID) bool { return c.id != "" && c.id == id }

func (c PlanChoice) MarshalJSON() ([]byte, error) {
	if !c.Chosen() {
		return []byte("null"), nil
	}
	return json.Marshal(string(c.id))
}

func (c *PlanChoice) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = NoPlanChosen()
		return nil
	}
	*c = ChoosePlan(PlanID(*s))
	return nil
}

// UserProfile is the per-user record the entitlement engine reads and mutates.
type UserProfile struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               Role       `json:"role"`
	IsPremium          bool       `json:"is_premium"`
	SelectedPlan       PlanChoice `json:"selected_plan"`
	PlanExpiryDate     *time.Time `json:"plan_expiry_date,omitempty"`
	DownloadsThisMonth int        `json:"downloads_this_month"`
	LastResetDate      time.Time  `json:"last_reset_date"`

	// Version is bumped by the store on every write and used for optimistic concurrency.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile returns the profile provisioned at registration.
func NewUserProfile(id, email, name string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:            id,
		Email:         email,
		Name:          name,
		Role:          RoleUser,
		SelectedPlan:  NoPlanChosen(),
		LastResetDate: now,
	}
}

func (p *UserProfile) IsAdmin() bool { return p.Role == RoleAdmin }

// Clone returns a deep copy so callers can mutate without touching the original.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	if p.PlanExpiryDate != nil {
		t := *p.PlanExpiryDate
		cp.PlanExpiryDate = &t
	}
	return &cp
}

// ProfileField names a mutable profile attribute at the engine boundary.
type ProfileField string

const (
	FieldEmail              ProfileField = "email"
	FieldName               ProfileField = "name"
	FieldRole               ProfileField = "role"
	FieldIsPremium          ProfileField = "isPremium"
	FieldSelectedPlan       ProfileField = "selectedPlan"
	FieldPlanExpiryDate     ProfileField = "planExpiryDate"
	FieldDownloadsThisMonth ProfileField = "downloadsThisMonth"
	FieldLastResetDate      ProfileField = "lastResetDate"
)

// Identity is an authenticated principal issued by the identity provider.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

// Session is returned after a successful sign-in.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Identity     Identity  `json:"identity"`
}
