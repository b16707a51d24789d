package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"draftkeeper/internal/entitlement"
	"draftkeeper/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDownloadCountsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDownloadRepo(db)
	at := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	p := &model.UserProfile{ID: "u1", Email: "a@example.com", Name: "Asha", Role: model.RoleUser,
		SelectedPlan: model.ChoosePlan(model.PlanMonthly), DownloadsThisMonth: 2, LastResetDate: at, Version: 3}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO downloads \(id, user_id, draft_id, downloaded_at\)`).
		WithArgs("dl-1", "u1", "d1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE user_profiles\s+SET downloads_this_month = \$1, version = version \+ 1`).
		WithArgs(int64(2), "u1", int64(3)).
		WillReturnRows(sqlmock.NewRows(profileRowColumns).
			AddRow("u1", "a@example.com", "Asha", "user", false, nil, nil, int64(2), at, int64(4), at, at))
	mock.ExpectCommit()

	saved, err := repo.RecordDownload(context.Background(), &model.Download{ID: "dl-1", UserID: "u1", DraftID: "d1", DownloadedAt: at}, p)
	require.NoError(t, err)
	assert.Equal(t, int64(4), saved.Version)
}

func TestRecordDownloadUncountedSkipsProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDownloadRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO downloads`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := repo.RecordDownload(context.Background(), &model.Download{ID: "dl-1", UserID: "admin", DraftID: "d1"}, nil)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestRecordDownloadVersionConflictRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDownloadRepo(db)
	p := &model.UserProfile{ID: "u1", Role: model.RoleUser, DownloadsThisMonth: 1, Version: 3}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO downloads`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE user_profiles`).WillReturnRows(sqlmock.NewRows(profileRowColumns))
	mock.ExpectQuery(`SELECT version FROM user_profiles WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
	mock.ExpectRollback()

	_, err := repo.RecordDownload(context.Background(), &model.Download{ID: "dl-1", UserID: "u1", DraftID: "d1"}, p)
	assert.ErrorIs(t, err, entitlement.ErrVersionConflict)
}

func TestRecordDownloadInsertErrorRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDownloadRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO downloads`).WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.RecordDownload(context.Background(), &model.Download{ID: "dl-1", UserID: "u1", DraftID: "missing"},
		&model.UserProfile{ID: "u1", DownloadsThisMonth: 1})
	assert.ErrorIs(t, err, entitlement.ErrPersistenceFailure)
	assert.ErrorContains(t, err, "fk violation")
}

func TestListDownloadsByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDownloadRepo(db)
	at := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, user_id, draft_id, downloaded_at FROM downloads`).
		WithArgs("u1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "draft_id", "downloaded_at"}).
			AddRow("dl-2", "u1", "d2", at).
			AddRow("dl-1", "u1", "d1", at.Add(-time.Hour)))

	downloads, err := repo.ListByUser(context.Background(), "u1", 5)
	require.NoError(t, err)
	require.Len(t, downloads, 2)
	assert.Equal(t, "d2", downloads[0].DraftID)
}
