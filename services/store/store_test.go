package store

import (
	"errors"
	"testing"
	"time"

	"Garito/services/rooms"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	assert.NoError(t, err)
	return db, mock
}

func sampleRecord() rooms.MatchRecord {
	return rooms.MatchRecord{
		RoomID:      "room-1",
		GameVariant: "dicerace",
		Players:     []string{"ana", "bob"},
		Participants: []rooms.MatchParticipant{
			{Username: "ana", FeePaidCents: 1000, FinalScore: 52, Winner: true},
			{Username: "bob", FeePaidCents: 1000, FinalScore: 47, AutoPlayed: true},
		},
		Scores:     map[string]int{"ana": 52, "bob": 47},
		Winner:     "ana",
		PrizeCents: 1200,
		PoolCents:  2000,
		FinishedAt: time.Now(),
	}
}

func expectHistoryWrite(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "match_histories"`).
		WillReturnRows(sqlmock.NewRows([]string{"record", "finished_at"}).
			AddRow([]byte(`{}`), time.Now()))
	// One participation row per seat, same transaction
	mock.ExpectQuery(`INSERT INTO "room_players"`).
		WillReturnRows(sqlmock.NewRows([]string{"final_state"}).AddRow([]byte(`{}`)))
	mock.ExpectQuery(`INSERT INTO "room_players"`).
		WillReturnRows(sqlmock.NewRows([]string{"final_state"}).AddRow([]byte(`{}`)))
	mock.ExpectExec(`UPDATE "game_rooms" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestSaveMatchHistoryWritesRowAndRoomStatus(t *testing.T) {
	db, mock := setupMockGorm(t)
	s := NewCompositeStore(nil, db)

	expectHistoryWrite(mock)

	assert.NoError(t, s.SaveMatchHistory(sampleRecord()))
	assert.Zero(t, s.PendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedHistoryWriteParksForReconciliation(t *testing.T) {
	db, mock := setupMockGorm(t)
	s := NewCompositeStore(nil, db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "match_histories"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	assert.Error(t, s.SaveMatchHistory(sampleRecord()))
	assert.Equal(t, 1, s.PendingCount())

	// The retry pass drains the queue once the database is back
	expectHistoryWrite(mock)
	assert.Equal(t, 1, s.FlushPending())
	assert.Zero(t, s.PendingCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushPendingRequeuesOnRepeatFailure(t *testing.T) {
	db, mock := setupMockGorm(t)
	s := NewCompositeStore(nil, db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "match_histories"`).
		WillReturnError(errors.New("still down"))
	mock.ExpectRollback()

	assert.Error(t, s.SaveMatchHistory(sampleRecord()))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "match_histories"`).
		WillReturnError(errors.New("still down"))
	mock.ExpectRollback()

	assert.Zero(t, s.FlushPending())
	assert.Equal(t, 1, s.PendingCount(), "record must survive a failed retry")
}
