package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// PermissionStore provides permission rows for identities.
type PermissionStore struct {
	db *gorm.DB
}

// NewPermissionStore creates a PermissionStore bound to the given database handle.
func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// ListByUser returns all permission rows for the identity across all rooms.
// Zero rows is a valid result, not an error.
func (s *PermissionStore) ListByUser(ctx context.Context, userID string) ([]Permission, error) {
	var perms []Permission
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// ListByRoom returns all permission rows granted within a room.
func (s *PermissionStore) ListByRoom(ctx context.Context, roomID string) ([]Permission, error) {
	var perms []Permission
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// Grant creates a permission row for the identity in the given room. The
// subject is derived from the room; callers never supply it.
func (s *PermissionStore) Grant(ctx context.Context, userID string, room Room, kind PermissionKind) (*Permission, error) {
	if room.ID == "" {
		return nil, errors.New("room id is required")
	}
	perm := Permission{
		UserID:  userID,
		RoomID:  room.ID,
		Kind:    kind,
		Subject: room.Subject(),
	}
	if err := s.db.WithContext(ctx).Create(&perm).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

// Revoke deletes a single permission row.
func (s *PermissionStore) Revoke(ctx context.Context, permissionID string) error {
	return s.db.WithContext(ctx).Delete(&Permission{}, "id = ?", permissionID).Error
}

// RevokeRoomPermissions deletes all of an identity's permissions in a room,
// e.g. when it leaves.
func (s *PermissionStore) RevokeRoomPermissions(ctx context.Context, userID, roomID string) error {
	return s.db.WithContext(ctx).Where("user_id = ? AND room_id = ?", userID, roomID).Delete(&Permission{}).Error
}
