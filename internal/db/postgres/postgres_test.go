package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestOpen_DoesNotDial(t *testing.T) {
	db, err := Open(Config{DSN: "postgres://127.0.0.1:1/none?sslmode=disable", MaxOpenConns: 4, MaxIdleConns: 1})
	assert.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestWaitForReady_Success(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	assert.NoError(t, WaitForReady(context.Background(), db, time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForReady_RetriesThenSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()

	assert.NoError(t, WaitForReady(context.Background(), db, 3*time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForReady_Timeout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	assert.NoError(t, err)
	defer db.Close()

	for range 10 {
		mock.ExpectPing().WillReturnError(errors.New("down"))
	}

	err = WaitForReady(context.Background(), db, 200*time.Millisecond)
	assert.Error(t, err)
}
