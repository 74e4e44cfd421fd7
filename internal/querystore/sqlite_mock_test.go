// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package querystore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBackend(t *testing.T) (*SQLiteBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLiteBackend{db: db, slot: SlotName}, mock
}

func TestSQLiteLoadEmpty(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT value FROM slots").
		WithArgs(SlotName).
		WillReturnError(sql.ErrNoRows)

	_, err := b.Load(context.Background())
	assert.ErrorIs(t, err, ErrSlotEmpty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteLoadRow(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT value FROM slots").
		WithArgs(SlotName).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteErrorsAreWrapped(t *testing.T) {
	locked := errors.New("database is locked")
	ctx := context.Background()

	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT value FROM slots").WithArgs(SlotName).WillReturnError(locked)
	mock.ExpectExec("INSERT INTO slots").
		WithArgs(SlotName, []byte(`[{"id":"a"}]`), sqlmock.AnyArg()).
		WillReturnError(locked)
	mock.ExpectExec("DELETE FROM slots").WithArgs(SlotName).WillReturnError(locked)

	_, err := b.Load(ctx)
	assert.ErrorIs(t, err, locked)
	assert.NotErrorIs(t, err, ErrSlotEmpty)

	err = b.Store(ctx, []byte(`[{"id":"a"}]`))
	assert.ErrorIs(t, err, locked)
	assert.Contains(t, err.Error(), "writing slot "+SlotName)

	err = b.Remove(ctx)
	assert.ErrorIs(t, err, locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreOpenOverLockedDatabase(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT value FROM slots").WithArgs(SlotName).WillReturnError(errors.New("database is locked"))

	s := Open(context.Background(), b, nil)
	assert.Empty(t, s.List(), "read failure starts with an empty store")
	assert.NoError(t, mock.ExpectationsWereMet())
}
