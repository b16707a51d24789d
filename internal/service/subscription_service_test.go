package service

import (
	"context"
	"testing"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPlanStartsTrial(t *testing.T) {
	p := model.NewUserProfile("u1", "u1@example.com", "U", testNow.AddDate(0, 0, -3))
	p.DownloadsThisMonth = 2
	p.Version = 1
	f := newFixture(p)
	svc := NewSubscriptionService(f.accounts, f.engine, zerolog.Nop())

	got, err := svc.SelectPlan(context.Background(), model.Identity{UserID: "u1"}, model.PlanQuarterly)
	require.NoError(t, err)
	assert.True(t, got.SelectedPlan.Is(model.PlanQuarterly))
	assert.False(t, got.IsPremium)
	assert.Zero(t, got.DownloadsThisMonth)
	assert.Equal(t, testNow, got.LastResetDate)
}

func TestSelectPlanUnknown(t *testing.T) {
	f := newFixture(trialProfile("u1", model.PlanMonthly, 0))
	svc := NewSubscriptionService(f.accounts, f.engine, zerolog.Nop())

	_, err := svc.SelectPlan(context.Background(), model.Identity{UserID: "u1"}, "weekly")
	assert.ErrorIs(t, err, ErrPlanUnknown)
}

func TestPlans(t *testing.T) {
	svc := NewSubscriptionService(nil, nil, zerolog.Nop())
	plans := svc.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, model.PlanQuarterly, plans[1].ID)
	assert.True(t, plans[1].Popular)
}

func TestStatusForTrialUser(t *testing.T) {
	f := newFixture(trialProfile("u1", model.PlanMonthly, 2))
	svc := NewSubscriptionService(f.accounts, f.engine, zerolog.Nop())

	st, err := svc.Status(context.Background(), model.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Monthly Premium", st.PlanName)
	assert.Equal(t, entitlement.StatusTrial, st.Status)
	assert.True(t, st.CanDownload)
	assert.Equal(t, 1, st.RemainingFreeDownloads)
	assert.Equal(t, 3, st.FreeDownloadLimit)
	assert.True(t, st.ShowUpgradePrompt)
	assert.False(t, st.RequiresPlanSelection)
	assert.Equal(t, "You're on Monthly Premium - 1 downloads remaining", st.Headline)
}

func TestSummarize(t *testing.T) {
	expiry := testNow.AddDate(0, 0, 5)
	premium := trialProfile("p", model.PlanYearly, 7)
	premium.IsPremium = true
	premium.PlanExpiryDate = &expiry

	st := Summarize(premium, testNow)
	assert.Equal(t, "You're on the Yearly Premium plan", st.Headline)
	assert.Equal(t, entitlement.StatusPremium, st.Status)
	assert.Equal(t, "Expires in 5 days", st.ExpiryText)
	assert.True(t, st.CanDownload)
	assert.False(t, st.ShowUpgradePrompt)

	fresh := model.NewUserProfile("n", "n@example.com", "N", testNow)
	st = Summarize(fresh, testNow)
	assert.True(t, st.RequiresPlanSelection)
	assert.Equal(t, "Free Trial", st.PlanName)
	assert.Equal(t, entitlement.StatusNoPlan, st.Status)

	admin := model.NewUserProfile("a", "a@example.com", "A", testNow)
	admin.Role = model.RoleAdmin
	st = Summarize(admin, testNow)
	assert.False(t, st.RequiresPlanSelection)
	assert.False(t, st.ShowUpgradePrompt)
	assert.Equal(t, "You have administrator access", st.Headline)
}
