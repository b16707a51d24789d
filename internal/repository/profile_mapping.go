package repository

import (
	"fmt"
	"time"

	"draftkeeper/internal/model"
)

// Engine-side names for the two bookkeeping fields that are never written
// through UpdateProfile.
const (
	fieldID      model.ProfileField = "id"
	fieldVersion model.ProfileField = "version"
)

// profileColumns is the single mapping between engine field names and
// user_profiles columns. Both directions are derived from it.
var profileColumns = []struct {
	field  model.ProfileField
	column string
}{
	{fieldID, "id"},
	{model.FieldEmail, "email"},
	{model.FieldName, "name"},
	{model.FieldRole, "role"},
	{model.FieldIsPremium, "is_premium"},
	{model.FieldSelectedPlan, "selected_plan"},
	{model.FieldPlanExpiryDate, "plan_expiry_date"},
	{model.FieldDownloadsThisMonth, "downloads_this_month"},
	{model.FieldLastResetDate, "last_reset_date"},
	{fieldVersion, "version"},
}

var (
	columnByField = map[model.ProfileField]string{}
	fieldByColumn = map[string]model.ProfileField{}
)

func init() {
	for _, c := range profileColumns {
		columnByField[c.field] = c.column
		fieldByColumn[c.column] = c.field
	}
}

// ColumnFor returns the column that stores field.
func ColumnFor(field model.ProfileField) (string, bool) {
	c, ok := columnByField[field]
	return c, ok
}

// FieldFor returns the engine field stored in column.
func FieldFor(column string) (model.ProfileField, bool) {
	f, ok := fieldByColumn[column]
	return f, ok
}

// ProfileToRecord converts a profile into a column-keyed record. A missing
// plan choice and a missing expiry are stored as nil (SQL NULL).
func ProfileToRecord(p *model.UserProfile) map[string]any {
	rec := make(map[string]any, len(profileColumns))
	for _, c := range profileColumns {
		rec[c.column] = profileValue(p, c.field)
	}
	return rec
}

func profileValue(p *model.UserProfile, field model.ProfileField) any {
	switch field {
	case fieldID:
		return p.ID
	case model.FieldEmail:
		return p.Email
	case model.FieldName:
		return p.Name
	case model.FieldRole:
		return string(p.Role)
	case model.FieldIsPremium:
		return p.IsPremium
	case model.FieldSelectedPlan:
		if id, ok := p.SelectedPlan.Plan(); ok {
			return string(id)
		}
		return nil
	case model.FieldPlanExpiryDate:
		if p.PlanExpiryDate == nil {
			return nil
		}
		return *p.PlanExpiryDate
	case model.FieldDownloadsThisMonth:
		return int64(p.DownloadsThisMonth)
	case model.FieldLastResetDate:
		return p.LastResetDate
	case fieldVersion:
		return p.Version
	}
	return nil
}

// ProfileFromRecord is the inverse of ProfileToRecord. It accepts the value
// shapes a database/sql driver hands back (string or []byte, int64, bool,
// time.Time, nil).
func ProfileFromRecord(rec map[string]any) (*model.UserProfile, error) {
	p := &model.UserProfile{SelectedPlan: model.NoPlanChosen()}
	for column, v := range rec {
		field, ok := fieldByColumn[column]
		if !ok {
			continue
		}
		if err := setProfileValue(p, field, v); err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
	}
	return p, nil
}

func setProfileValue(p *model.UserProfile, field model.ProfileField, v any) error {
	var err error
	switch field {
	case fieldID:
		p.ID, err = asString(v)
	case model.FieldEmail:
		p.Email, err = asString(v)
	case model.FieldName:
		p.Name, err = asString(v)
	case model.FieldRole:
		var s string
		s, err = asString(v)
		p.Role = model.Role(s)
	case model.FieldIsPremium:
		p.IsPremium, err = asBool(v)
	case model.FieldSelectedPlan:
		if v == nil {
			p.SelectedPlan = model.NoPlanChosen()
			return nil
		}
		var s string
		s, err = asString(v)
		if s == "" {
			p.SelectedPlan = model.NoPlanChosen()
		} else {
			p.SelectedPlan = model.ChoosePlan(model.PlanID(s))
		}
	case model.FieldPlanExpiryDate:
		if v == nil {
			p.PlanExpiryDate = nil
			return nil
		}
		var t time.Time
		t, err = asTime(v)
		p.PlanExpiryDate = &t
	case model.FieldDownloadsThisMonth:
		var n int64
		n, err = asInt64(v)
		p.DownloadsThisMonth = int(n)
	case model.FieldLastResetDate:
		p.LastResetDate, err = asTime(v)
	case fieldVersion:
		p.Version, err = asInt64(v)
	}
	return err
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unexpected type %T for text value", v)
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case nil:
		return false, nil
	}
	return false, fmt.Errorf("unexpected type %T for boolean value", v)
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected type %T for integer value", v)
}

func asTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unexpected type %T for timestamp value", v)
}
