// Package store provides the relational models and repositories backing the
// authentication service: identities, broker accounts, rooms, permissions,
// and auth sessions.
package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionKind classifies what a permission row authorizes.
type PermissionKind string

const (
	PermissionPub  PermissionKind = "pub"
	PermissionSub  PermissionKind = "sub"
	PermissionBoth PermissionKind = "both"
)

// User is an identity that may connect to the broker. The nats_* columns
// hold its broker credential; their presence gates authorization. Identity
// rows are never hard-deleted by the auth flow.
type User struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Username       string `gorm:"size:50;uniqueIndex;not null"`
	Email          string `gorm:"size:100;uniqueIndex"`
	HashedPassword string `gorm:"size:100;not null"`
	IsActive       bool   `gorm:"not null"`

	AccountID *string `gorm:"type:uuid"`
	Account   *Account

	NatsJWT       string `gorm:"column:nats_jwt;type:text"`
	NatsPublicKey string `gorm:"column:nats_public_key;size:60"`
	NatsExpiresAt *time.Time
	NatsExpiredAt *time.Time

	CreatedAt time.Time
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasBrokerCredential reports whether the identity carries an active broker
// credential. This is the authorizing check for callout requests.
func (u *User) HasBrokerCredential() bool {
	return u.NatsJWT != "" && u.NatsPublicKey != ""
}

// Account is a named grouping identified to the broker's trust chain by its
// public key. Immutable after creation except for the description.
type Account struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"size:50;uniqueIndex;not null"`
	PublicKey   string `gorm:"size:60;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (Account) TableName() string { return "nats_accounts" }

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Room is a named subject-space inside an account.
type Room struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Name          string `gorm:"size:50;uniqueIndex;not null"`
	SubjectPrefix string `gorm:"size:50;not null"`
	AccountID     string `gorm:"type:uuid;not null"`
	Account       *Account
	Description   string `gorm:"type:text"`
	IsPublic      bool   `gorm:"not null"`
	CreatedAt     time.Time
}

func (Room) TableName() string { return "nats_rooms" }

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Subject returns the wire subject this room authorizes. Permission subjects
// always derive from the room, never from caller input.
func (r Room) Subject() string {
	return r.SubjectPrefix + "." + r.Name
}

// RoomMember associates an identity with a room.
type RoomMember struct {
	UserID   string `gorm:"type:uuid;primaryKey"`
	RoomID   string `gorm:"type:uuid;primaryKey"`
	JoinedAt time.Time
}

func (RoomMember) TableName() string { return "nats_user_rooms" }

// Permission authorizes an identity to publish and/or subscribe to a literal
// wire subject within a room. Multiple rows per (user, room) pair are
// allowed as long as the subjects differ.
type Permission struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	UserID    string         `gorm:"type:uuid;index;not null"`
	RoomID    string         `gorm:"type:uuid;index;not null"`
	Kind      PermissionKind `gorm:"column:permission_type;size:10;not null"`
	Subject   string         `gorm:"size:255;not null"`
	CreatedAt time.Time
}

func (Permission) TableName() string { return "nats_permissions" }

func (p *Permission) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// AuthSession records one broker connection per client id. The unique index
// on client_id is what makes the upsert race-free.
type AuthSession struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	UserID       string `gorm:"type:uuid;index;not null"`
	ClientID     string `gorm:"size:100;uniqueIndex;not null"`
	IPAddress    string `gorm:"size:45"`
	UserAgent    string `gorm:"size:255"`
	Active       bool   `gorm:"not null"`
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    *time.Time
}

func (AuthSession) TableName() string { return "nats_auth_sessions" }

func (s *AuthSession) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
