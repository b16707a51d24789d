// Package entitlement owns the download quota, the periodic counter reset and
// plan transitions, and decides whether a user may download a template.
package entitlement

import (
	"fmt"
	"math"
	"time"

	"draftkeeper/internal/model"
)

// FreeDownloadLimit is the number of downloads a non-premium user gets per period.
const FreeDownloadLimit = 3

// MonthsElapsed counts calendar month boundaries between from and to.
// Day of month is ignored: Jan 31 to Feb 1 is one month.
func MonthsElapsed(from, to time.Time) int {
	from = from.In(to.Location())
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// PeriodMonths is the length of the counting period for p.
func PeriodMonths(p *model.UserProfile) int {
	if p.IsPremium && p.SelectedPlan.Is(model.PlanQuarterly) {
		return 3
	}
	return 1
}

// ShouldReset reports whether the counting period of p has elapsed at now.
// Admins are exempt from quota tracking and never reset.
func ShouldReset(p *model.UserProfile, now time.Time) bool {
	if p.IsAdmin() {
		return false
	}
	return MonthsElapsed(p.LastResetDate, now) >= PeriodMonths(p)
}

// CanDownload must be called on a profile that already went through EvaluateAndApplyReset.
func CanDownload(p *model.UserProfile) bool {
	return p.IsAdmin() || p.IsPremium || p.DownloadsThisMonth < FreeDownloadLimit
}

// RemainingFreeDownloads is the number of free downloads left in the period.
func RemainingFreeDownloads(p *model.UserProfile) int {
	return max(0, FreeDownloadLimit-p.DownloadsThisMonth)
}

// RequiresPlanSelection is the dashboard route gate: regular users must pick a plan first.
func RequiresPlanSelection(p *model.UserProfile) bool {
	return !p.IsAdmin() && !p.SelectedPlan.Chosen()
}

// PlanExpiry returns the expiry of a plan paid for at now.
func PlanExpiry(id model.PlanID, now time.Time) (time.Time, error) {
	switch id {
	case model.PlanMonthly:
		return now.AddDate(0, 1, 0), nil
	case model.PlanQuarterly:
		return now.AddDate(0, 3, 0), nil
	case model.PlanYearly:
		return now.AddDate(1, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrPlanUnknown, id)
}

// PlanStatus is a display-only classification of a profile's plan state.
type PlanStatus string

const (
	StatusAdmin          PlanStatus = "admin"
	StatusNoPlan         PlanStatus = "none"
	StatusTrial          PlanStatus = "trial"
	StatusTrialExhausted PlanStatus = "trial_exhausted"
	StatusPremium        PlanStatus = "premium"
	// StatusPremiumExpired is reported only; the profile is not downgraded.
	StatusPremiumExpired PlanStatus = "premium_expired"
)

func Status(p *model.UserProfile, now time.Time) PlanStatus {
	switch {
	case p.IsAdmin():
		return StatusAdmin
	case p.IsPremium:
		if p.PlanExpiryDate != nil && !now.Before(*p.PlanExpiryDate) {
			return StatusPremiumExpired
		}
		return StatusPremium
	case !p.SelectedPlan.Chosen():
		return StatusNoPlan
	case p.DownloadsThisMonth >= FreeDownloadLimit:
		return StatusTrialExhausted
	}
	return StatusTrial
}

// ExpiryText renders the premium expiry for the dashboard header.
func ExpiryText(p *model.UserProfile, now time.Time) string {
	if !p.IsPremium || p.PlanExpiryDate == nil {
		return ""
	}
	daysLeft := int(math.Ceil(p.PlanExpiryDate.Sub(now).Hours() / 24))
	switch {
	case daysLeft <= 0:
		return "Expired"
	case daysLeft == 1:
		return "Expires in 1 day"
	case daysLeft <= 7:
		return fmt.Sprintf("Expires in %d days", daysLeft)
	}
	return "Expires " + p.PlanExpiryDate.Format("2006-01-02")
}
