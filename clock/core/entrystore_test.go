package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crewclock.app/crewclock/clock/model"
)

func mockStore(t *testing.T) (*GormEntryStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewGormEntryStore(db), mock
}

func openEntryRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "worker_id", "company_id", "job_id", "clock_in_at", "version"}).
		AddRow("existing-entry", 1, "acme", 10, time.Now().Add(-time.Hour), 1)
}

func TestCreateOpenEntryRejectsSecondOpen(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `time_entries` WHERE worker_id = (.+) AND clock_out_at IS NULL (.+)FOR UPDATE").
		WillReturnRows(openEntryRow())
	mock.ExpectRollback()

	err := store.CreateOpenEntry(context.Background(), &model.TimeEntry{
		ID:        "new-entry",
		WorkerID:  1,
		CompanyID: "acme",
		JobID:     10,
		ClockInAt: time.Now(),
		Version:   1,
	})
	assert.ErrorIs(t, err, ErrOpenEntryExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOpenEntryInsertsWhenNoneOpen(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `time_entries` WHERE worker_id = (.+) AND clock_out_at IS NULL (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO `time_entries`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.CreateOpenEntry(context.Background(), &model.TimeEntry{
		ID:        "new-entry",
		WorkerID:  1,
		CompanyID: "acme",
		JobID:     10,
		ClockInAt: time.Now(),
		GeoOkIn:   true,
		Version:   1,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseEntryWithoutOpenRow(t *testing.T) {
	store, mock := mockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `time_entries` WHERE worker_id = (.+) AND job_id = (.+) AND clock_out_at IS NULL (.+)FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := store.CloseEntry(context.Background(), 1, 10, time.Now(), true, nil)
	assert.ErrorIs(t, err, ErrNoOpenEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentionExhaustsRetryBudget(t *testing.T) {
	store, mock := mockStore(t)

	for i := 0; i < txRetryBudget; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM `time_entries` WHERE worker_id = (.+) AND clock_out_at IS NULL (.+)FOR UPDATE").
			WillReturnError(errors.New("Error 1213: Deadlock found when trying to get lock"))
		mock.ExpectRollback()
	}

	err := store.CreateOpenEntry(context.Background(), &model.TimeEntry{
		ID:        "new-entry",
		WorkerID:  1,
		ClockInAt: time.Now(),
		Version:   1,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
