package entitlement

import (
	"testing"
	"time"

	"draftkeeper/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestMonthsElapsed(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{"same month", date(2024, time.March, 1), date(2024, time.March, 31), 0},
		{"next month one day later", date(2024, time.January, 31), date(2024, time.February, 1), 1},
		{"across year", date(2023, time.November, 15), date(2024, time.February, 1), 3},
		{"full year", date(2023, time.May, 5), date(2024, time.May, 4), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthsElapsed(tt.from, tt.to))
		})
	}
}

func TestCanDownloadAdminAlwaysTrue(t *testing.T) {
	for downloads := 0; downloads <= 10; downloads++ {
		for _, premium := range []bool{true, false} {
			p := &model.UserProfile{Role: model.RoleAdmin, DownloadsThisMonth: downloads, IsPremium: premium}
			assert.True(t, CanDownload(p), "downloads=%d premium=%v", downloads, premium)
		}
	}
}

func TestCanDownloadFreeUserQuota(t *testing.T) {
	for downloads := 0; downloads <= 10; downloads++ {
		p := &model.UserProfile{Role: model.RoleUser, DownloadsThisMonth: downloads}
		assert.Equal(t, downloads < FreeDownloadLimit, CanDownload(p), "downloads=%d", downloads)
	}
}

func TestCanDownloadPremiumAlwaysTrue(t *testing.T) {
	for downloads := 0; downloads <= 10; downloads++ {
		p := &model.UserProfile{Role: model.RoleUser, IsPremium: true, DownloadsThisMonth: downloads}
		assert.True(t, CanDownload(p), "downloads=%d", downloads)
	}
}

func TestShouldReset(t *testing.T) {
	now := date(2024, time.June, 15)
	tests := []struct {
		name    string
		profile model.UserProfile
		want    bool
	}{
		{
			name:    "free user same month",
			profile: model.UserProfile{Role: model.RoleUser, LastResetDate: date(2024, time.June, 1)},
			want:    false,
		},
		{
			name:    "free user previous month",
			profile: model.UserProfile{Role: model.RoleUser, LastResetDate: date(2024, time.May, 31)},
			want:    true,
		},
		{
			name: "quarterly premium two months",
			profile: model.UserProfile{Role: model.RoleUser, IsPremium: true,
				SelectedPlan: model.ChoosePlan(model.PlanQuarterly), LastResetDate: date(2024, time.April, 1)},
			want: false,
		},
		{
			name: "quarterly premium three months",
			profile: model.UserProfile{Role: model.RoleUser, IsPremium: true,
				SelectedPlan: model.ChoosePlan(model.PlanQuarterly), LastResetDate: date(2024, time.March, 20)},
			want: true,
		},
		{
			name: "quarterly trial resets monthly",
			profile: model.UserProfile{Role: model.RoleUser,
				SelectedPlan: model.ChoosePlan(model.PlanQuarterly), LastResetDate: date(2024, time.May, 20)},
			want: true,
		},
		{
			name: "yearly premium resets monthly",
			profile: model.UserProfile{Role: model.RoleUser, IsPremium: true,
				SelectedPlan: model.ChoosePlan(model.PlanYearly), LastResetDate: date(2024, time.May, 20)},
			want: true,
		},
		{
			name:    "admin never resets",
			profile: model.UserProfile{Role: model.RoleAdmin, LastResetDate: date(2020, time.January, 1)},
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldReset(&tt.profile, now))
		})
	}
}

func TestRequiresPlanSelection(t *testing.T) {
	user := &model.UserProfile{Role: model.RoleUser, SelectedPlan: model.NoPlanChosen()}
	assert.True(t, RequiresPlanSelection(user))

	admin := user.Clone()
	admin.Role = model.RoleAdmin
	assert.False(t, RequiresPlanSelection(admin))

	trial := user.Clone()
	trial.SelectedPlan = model.ChoosePlan(model.PlanMonthly)
	assert.False(t, RequiresPlanSelection(trial))
}

func TestPlanExpiry(t *testing.T) {
	now := date(2024, time.March, 10)

	monthly, err := PlanExpiry(model.PlanMonthly, now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 10), monthly)

	quarterly, err := PlanExpiry(model.PlanQuarterly, now)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.June, 10), quarterly)

	yearly, err := PlanExpiry(model.PlanYearly, now)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 10), yearly)

	_, err = PlanExpiry("weekly", now)
	assert.ErrorIs(t, err, ErrPlanUnknown)
}

func TestStatusAndExpiryText(t *testing.T) {
	now := date(2024, time.March, 10)
	in3Days := now.Add(72 * time.Hour)
	past := now.Add(-time.Hour)
	later := date(2024, time.December, 1)

	assert.Equal(t, StatusNoPlan, Status(&model.UserProfile{Role: model.RoleUser}, now))
	assert.Equal(t, StatusTrial, Status(&model.UserProfile{Role: model.RoleUser, SelectedPlan: model.ChoosePlan(model.PlanMonthly), DownloadsThisMonth: 2}, now))
	assert.Equal(t, StatusTrialExhausted, Status(&model.UserProfile{Role: model.RoleUser, SelectedPlan: model.ChoosePlan(model.PlanMonthly), DownloadsThisMonth: 3}, now))
	assert.Equal(t, StatusAdmin, Status(&model.UserProfile{Role: model.RoleAdmin}, now))

	premium := &model.UserProfile{Role: model.RoleUser, IsPremium: true, SelectedPlan: model.ChoosePlan(model.PlanMonthly), PlanExpiryDate: &in3Days}
	assert.Equal(t, StatusPremium, Status(premium, now))
	assert.Equal(t, "Expires in 3 days", ExpiryText(premium, now))

	premium.PlanExpiryDate = &past
	assert.Equal(t, StatusPremiumExpired, Status(premium, now))
	assert.Equal(t, "Expired", ExpiryText(premium, now))
	assert.True(t, CanDownload(premium), "expired premium is reported, not downgraded")

	premium.PlanExpiryDate = &later
	assert.Equal(t, "Expires 2024-12-01", ExpiryText(premium, now))
}

func TestRemainingFreeDownloads(t *testing.T) {
	assert.Equal(t, 3, RemainingFreeDownloads(&model.UserProfile{}))
	assert.Equal(t, 1, RemainingFreeDownloads(&model.UserProfile{DownloadsThisMonth: 2}))
	assert.Equal(t, 0, RemainingFreeDownloads(&model.UserProfile{DownloadsThisMonth: 7}))
}
