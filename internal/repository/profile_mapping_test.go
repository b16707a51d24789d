package repository

import (
	"testing"
	"time"

	"draftkeeper/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRecordRoundTrip(t *testing.T) {
	expiry := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	profiles := map[string]*model.UserProfile{
		"fresh": model.NewUserProfile("u1", "a@example.com", "Asha", time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)),
		"premium": {
			ID: "u2", Email: "b@example.com", Name: "Bala", Role: model.RoleUser,
			IsPremium: true, SelectedPlan: model.ChoosePlan(model.PlanYearly), PlanExpiryDate: &expiry,
			DownloadsThisMonth: 14, LastResetDate: time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC), Version: 7,
		},
		"admin": {
			ID: "u3", Email: "admin@example.com", Role: model.RoleAdmin,
			SelectedPlan: model.NoPlanChosen(), LastResetDate: time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), Version: 1,
		},
	}

	for name, p := range profiles {
		t.Run(name, func(t *testing.T) {
			back, err := ProfileFromRecord(ProfileToRecord(p))
			require.NoError(t, err)
			assert.Equal(t, p, back)
		})
	}
}

func TestProfileToRecordUsesColumnNames(t *testing.T) {
	rec := ProfileToRecord(model.NewUserProfile("u1", "a@example.com", "Asha", time.Now()))

	assert.Len(t, rec, 10)
	assert.Nil(t, rec["selected_plan"])
	assert.Nil(t, rec["plan_expiry_date"])
	assert.Equal(t, "user", rec["role"])
	assert.Equal(t, int64(0), rec["downloads_this_month"])
}

func TestFieldColumnMappingIsBijective(t *testing.T) {
	for _, c := range profileColumns {
		column, ok := ColumnFor(c.field)
		require.True(t, ok)
		field, ok := FieldFor(column)
		require.True(t, ok)
		assert.Equal(t, c.field, field)
	}
	assert.Len(t, columnByField, len(fieldByColumn))
}

func TestProfileFromRecordDriverShapes(t *testing.T) {
	reset := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	p, err := ProfileFromRecord(map[string]any{
		"id":                   []byte("u1"),
		"role":                 "admin",
		"selected_plan":        []byte("quarterly"),
		"downloads_this_month": int32(2),
		"last_reset_date":      reset,
		"plan_expiry_date":     nil,
		"ignored_column":       "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.IsAdmin())
	assert.True(t, p.SelectedPlan.Is(model.PlanQuarterly))
	assert.Equal(t, 2, p.DownloadsThisMonth)
	assert.Nil(t, p.PlanExpiryDate)
}

func TestProfileFromRecordRejectsBadTypes(t *testing.T) {
	_, err := ProfileFromRecord(map[string]any{"is_premium": "yes"})
	assert.Error(t, err)
}
