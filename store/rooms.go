package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RoomStore manages rooms, memberships, and the permissions they imply.
type RoomStore struct {
	db *gorm.DB
}

// NewRoomStore creates a RoomStore bound to the given database handle.
func NewRoomStore(db *gorm.DB) *RoomStore {
	return &RoomStore{db: db}
}

// Create persists a new room.
func (s *RoomStore) Create(ctx context.Context, r *Room) error {
	if r.SubjectPrefix == "" {
		r.SubjectPrefix = "room"
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// FindByName returns the room with the given name, or (nil, nil).
func (s *RoomStore) FindByName(ctx context.Context, name string) (*Room, error) {
	var r Room
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListForUser returns the rooms the identity is a member of.
func (s *RoomStore) ListForUser(ctx context.Context, userID string) ([]Room, error) {
	var rooms []Room
	err := s.db.WithContext(ctx).
		Joins("JOIN nats_user_rooms ON nats_user_rooms.room_id = nats_rooms.id").
		Where("nats_user_rooms.user_id = ?", userID).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// AddMember joins the identity to the room and grants it a permission of the
// given kind on the room's derived subject. Joining twice is a no-op for the
// membership row.
func (s *RoomStore) AddMember(ctx context.Context, userID string, room Room, kind PermissionKind) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RoomMember
		err := tx.Where("user_id = ? AND room_id = ?", userID, room.ID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		member := RoomMember{UserID: userID, RoomID: room.ID, JoinedAt: time.Now()}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		perm := Permission{
			UserID:  userID,
			RoomID:  room.ID,
			Kind:    kind,
			Subject: room.Subject(),
		}
		return tx.Create(&perm).Error
	})
}

// RemoveMember removes the identity from the room and revokes its
// permissions there.
func (s *RoomStore) RemoveMember(ctx context.Context, userID, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND room_id = ?", userID, roomID).Delete(&RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND room_id = ?", userID, roomID).Delete(&Permission{}).Error
	})
}

// Delete removes the room, its memberships, and all permissions granted in it.
func (s *RoomStore) Delete(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&RoomMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&Permission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Room{}, "id = ?", roomID).Error
	})
}
