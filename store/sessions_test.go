package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Upsert_New(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectExec(`INSERT INTO "nats_auth_sessions" (.+) ON CONFLICT`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "nats_auth_sessions" WHERE client_id =`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "client_id", "active"}).
			AddRow("session-1", "user-1", "client-1", true))

	sess, err := s.Upsert(context.Background(), SessionUpsert{
		UserID:    "user-1",
		ClientID:  "client-1",
		IPAddress: "10.1.2.3",
		UserAgent: "go/1.48.0",
	})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "session-1", sess.ID)
	assert.True(t, sess.Active)

	expectationsMet(t, mock)
}

func TestSessionStore_Upsert_RenewalKeepsRowID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	// The conflict path updates in place; the re-read must surface the
	// original row id, not the insert candidate's.
	mock.ExpectExec(`INSERT INTO "nats_auth_sessions" (.+) ON CONFLICT`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "nats_auth_sessions" WHERE client_id =`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "client_id", "active"}).
			AddRow("original-id", "user-1", "client-1", true))

	sess, err := s.Upsert(context.Background(), SessionUpsert{UserID: "user-1", ClientID: "client-1"})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "original-id", sess.ID)

	expectationsMet(t, mock)
}

func TestSessionStore_Upsert_Validation(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	_, err := s.Upsert(context.Background(), SessionUpsert{UserID: "user-1"})
	assert.Error(t, err, "empty client id must be rejected")

	past := time.Now().Add(-time.Hour)
	_, err = s.Upsert(context.Background(), SessionUpsert{
		UserID:    "user-1",
		ClientID:  "client-1",
		ExpiresAt: &past,
	})
	assert.Error(t, err, "expiry before creation must be rejected")

	// Neither rejection touches the database.
	expectationsMet(t, mock)
}

func TestSessionStore_GetByClientID_ActiveOnly(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM "nats_auth_sessions" WHERE client_id = (.+) AND active =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "active"}).
			AddRow("session-1", "client-1", true))

	sess, err := s.GetByClientID(context.Background(), "client-1", true)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "session-1", sess.ID)

	expectationsMet(t, mock)
}

func TestSessionStore_GetByClientID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM "nats_auth_sessions" WHERE client_id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sess, err := s.GetByClientID(context.Background(), "client-1", false)
	require.NoError(t, err)
	assert.Nil(t, sess)

	expectationsMet(t, mock)
}

func TestSessionStore_ListByUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM "nats_auth_sessions" WHERE user_id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "client_id"}).
			AddRow("session-1", "user-1", "client-1").
			AddRow("session-2", "user-1", "client-2"))

	sessions, err := s.ListByUser(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	expectationsMet(t, mock)
}

func TestSessionStore_TouchAndDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectExec(`UPDATE "nats_auth_sessions" SET "last_activity"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Touch(context.Background(), "session-1"))

	mock.ExpectExec(`UPDATE "nats_auth_sessions" SET "active"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Deactivate(context.Background(), "session-1"))

	expectationsMet(t, mock)
}

func TestSessionStore_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewSessionStore(db)

	mock.ExpectExec(`DELETE FROM "nats_auth_sessions" WHERE id =`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), "session-1"))

	expectationsMet(t, mock)
}
