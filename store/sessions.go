package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionUpsert carries the inputs for recording a client connection.
type SessionUpsert struct {
	UserID    string
	ClientID  string
	IPAddress string
	UserAgent string
	// ExpiresAt, when set, must not precede the creation time.
	ExpiresAt *time.Time
}

// SessionStore tracks one auth session per distinct client id.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore creates a SessionStore bound to the given database handle.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Upsert records a connection for the client id: an existing row has its
// last_activity advanced and is reactivated, otherwise a new active row is
// created. The insert and update are a single statement resolved by the
// unique index on client_id, so concurrent calls for the same client id
// cannot produce duplicate rows.
func (s *SessionStore) Upsert(ctx context.Context, p SessionUpsert) (*AuthSession, error) {
	if p.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	now := time.Now()
	if p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
		return nil, errors.New("expires_at must not precede creation time")
	}

	sess := AuthSession{
		UserID:       p.UserID,
		ClientID:     p.ClientID,
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
		Active:       true,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    p.ExpiresAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_activity": now,
			"active":        true,
		}),
	}).Create(&sess).Error
	if err != nil {
		return nil, err
	}

	// Re-read so renewals return the original row id, not the candidate's.
	return s.GetByClientID(ctx, p.ClientID, false)
}

// GetByClientID returns the session for the client id, or (nil, nil) when
// none exists. With activeOnly set, inactive and expired sessions are
// filtered out.
func (s *SessionStore) GetByClientID(ctx context.Context, clientID string, activeOnly bool) (*AuthSession, error) {
	q := s.db.WithContext(ctx).Where("client_id = ?", clientID)
	if activeOnly {
		q = q.Where("active = ?", true).Where("expires_at IS NULL OR expires_at > ?", time.Now())
	}
	var sess AuthSession
	err := q.First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListByUser returns all sessions for an identity, optionally only the
// active, non-expired ones.
func (s *SessionStore) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]AuthSession, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("active = ?", true).Where("expires_at IS NULL OR expires_at > ?", time.Now())
	}
	var sessions []AuthSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Touch advances the session's last_activity to now.
func (s *SessionStore) Touch(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Model(&AuthSession{}).Where("id = ?", sessionID).
		Update("last_activity", time.Now()).Error
}

// Deactivate marks the session inactive. This is an explicit operation;
// Upsert never deactivates.
func (s *SessionStore) Deactivate(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Model(&AuthSession{}).Where("id = ?", sessionID).
		Update("active", false).Error
}

// Delete removes the session row.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Delete(&AuthSession{}, "id = ?", sessionID).Error
}
