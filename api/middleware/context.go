package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type ctxKey uint8

const (
	userIDKey ctxKey = iota
	accessIDKey
	requestIDKey
)

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// AccessIDFromContext is the jti of the token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, accessIDKey) }

func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// WithUserID marks ctx as authenticated for userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// OwnerIDFromContext is the shopper every cart, order and payment call is
// scoped to.
func OwnerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
