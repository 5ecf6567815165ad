package auth

import (
	"context"

	"github.com/hdnguyen/chatauth/store"
)

// PermissionSource lists permission rows for an identity.
type PermissionSource interface {
	ListByUser(ctx context.Context, userID string) ([]store.Permission, error)
}

// PermissionResolver aggregates an identity's permission rows into the
// publish and subscribe allow-lists embedded in its grant. Subjects are
// passed through exactly as stored; no wildcard expansion is performed.
type PermissionResolver struct {
	perms PermissionSource
}

// NewPermissionResolver creates a resolver over the given source.
func NewPermissionResolver(perms PermissionSource) *PermissionResolver {
	return &PermissionResolver{perms: perms}
}

// Resolve classifies each permission row by kind. An identity with no rows
// gets two empty lists, which still yields a valid, maximally-restrictive
// grant downstream.
func (r *PermissionResolver) Resolve(ctx context.Context, userID string) (pub, sub []string, err error) {
	rows, err := r.perms.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	pub = make([]string, 0, len(rows))
	sub = make([]string, 0, len(rows))
	for _, p := range rows {
		switch p.Kind {
		case store.PermissionPub:
			pub = append(pub, p.Subject)
		case store.PermissionSub:
			sub = append(sub, p.Subject)
		case store.PermissionBoth:
			pub = append(pub, p.Subject)
			sub = append(sub, p.Subject)
		}
	}

	return pub, sub, nil
}
