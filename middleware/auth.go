package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/utils"
)

const (
	// ContextUserIDKey is the key used to store the authenticated user ID in the Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside the Gin context.
	ContextUsernameKey = "username"

	// AccessTokenCookie is the httpOnly cookie carrying the JWT access token.
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie is the httpOnly cookie carrying the opaque refresh token.
	RefreshTokenCookie = "refreshToken"
)

// AuthRequired ensures the request carries a valid access token, either in
// the accessToken cookie (the normal browser path) or an Authorization
// bearer header (API clients).
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractAccessToken(ctx)
		if token == "" {
			utils.Fail(ctx, httperr.Unauthorized("authentication required"))
			return
		}

		claims, err := utils.ParseAccessToken(token)
		if err != nil {
			utils.Fail(ctx, httperr.Unauthorized("invalid or expired token"))
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// OptionalAuth populates the user identity when a valid token is present
// but lets anonymous requests through. Used by read endpoints that adapt
// their payload (e.g. "liked" flags) to the viewer.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if token := extractAccessToken(ctx); token != "" {
			if claims, err := utils.ParseAccessToken(token); err == nil {
				ctx.Set(ContextUserIDKey, claims.UserID)
				ctx.Set(ContextUsernameKey, claims.Username)
			}
		}
		ctx.Next()
	}
}

func extractAccessToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
