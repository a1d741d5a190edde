package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

const (
	// ContextPrincipalKey is the key used to store the authenticated principal in Gin context.
	ContextPrincipalKey = "principal"
	// ContextTokenKey stores the raw bearer token so logout can revoke it.
	ContextTokenKey = "token"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

// AuthRequired ensures the request carries a valid, unrevoked admin token.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		principal, err := auth.Authenticate(ctx.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthenticated) {
				utils.Sugar.Warnw("token check failed", "error", err)
			}
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid or expired token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextPrincipalKey, *principal)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// CurrentPrincipal returns the principal stored by AuthRequired.
func CurrentPrincipal(ctx *gin.Context) (services.Principal, bool) {
	v, ok := ctx.Get(ContextPrincipalKey)
	if !ok {
		return services.Principal{}, false
	}
	p, ok := v.(services.Principal)
	return p, ok
}
