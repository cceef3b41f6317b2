package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgauth "github.com/angelmondragon/datavend-backend/pkg/auth"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
)

type callerKey struct{}

// Caller is the authenticated identity behind a request. Admins may carry
// no tenant and no tier.
type Caller struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     enums.Role
	Tier     enums.UserTier
}

func callerFromClaims(claims *pkgauth.AccessTokenClaims) Caller {
	return Caller{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
		Tier:     claims.Tier,
	}
}

func (c Caller) IsAdmin() bool {
	return c.Role == enums.RoleAdmin
}

// WithCaller stores the caller for handlers further down the chain.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerOf(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok && caller.UserID != uuid.Nil
}

// CallerFromContext returns the caller Auth stored, or an unauthorized
// error on routes Auth does not guard.
func CallerFromContext(ctx context.Context) (Caller, error) {
	caller, ok := callerOf(ctx)
	if !ok {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller missing from request")
	}
	return caller, nil
}
