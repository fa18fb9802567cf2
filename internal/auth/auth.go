package auth

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user id (string UUID).
	UserIDKey contextKey = "user_id"
	// UserRolesKey is the context key for the user's role set.
	UserRolesKey contextKey = "user_roles"
)

// Role is a user role.
type Role string

const (
	RoleUser     Role = "user"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, uid string, roles []Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, uid)
	return context.WithValue(ctx, UserRolesKey, roles)
}

// GetUIDFromContext returns the authenticated user id, if any.
func GetUIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}

// GetRolesFromContext returns the user's role set.
func GetRolesFromContext(ctx context.Context) ([]Role, bool) {
	roles, ok := ctx.Value(UserRolesKey).([]Role)
	return roles, ok
}

// HasRole reports whether the current user holds the given role.
func HasRole(ctx context.Context, role Role) bool {
	roles, ok := GetRolesFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the current user is an administrator.
func IsAdmin(ctx context.Context) bool {
	return HasRole(ctx, RoleAdmin)
}

// RequireUser checks that a caller identity is present.
func RequireUser(ctx context.Context) (string, error) {
	uid, ok := GetUIDFromContext(ctx)
	if !ok {
		return "", errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	return uid, nil
}

// RequireAdmin checks that the caller is an authenticated administrator.
func RequireAdmin(ctx context.Context) error {
	if _, ok := GetUIDFromContext(ctx); !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	if !IsAdmin(ctx) {
		return errors.Forbidden("FORBIDDEN", "permission denied: admin role required")
	}
	return nil
}

// CheckOwnership checks that the caller may access the given user's resources.
// Admins may access everything; other users only their own records.
func CheckOwnership(ctx context.Context, resourceUID string) error {
	currentUID, ok := GetUIDFromContext(ctx)
	if !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}

	if IsAdmin(ctx) {
		return nil
	}

	if currentUID != resourceUID {
		return errors.Forbidden("FORBIDDEN", "permission denied: you can only access your own resources")
	}

	return nil
}
