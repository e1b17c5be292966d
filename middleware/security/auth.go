package security

import (
	"context"
	"strings"

	"TripChat/tools/apiresp"
	"TripChat/tools/errs"
	jwtsec "TripChat/tools/security"

	"github.com/gin-gonic/gin"
)

const (
	CookieToken  = "token"
	CtxUserIDKey = "userId"
)

var ErrUserGone = errs.NewCodeError(errs.RecordNotFoundError, "unauthorized - user not found")

// UserChecker confirms a token's user still exists.
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type Options struct {
	JWT   jwtsec.Options
	Users UserChecker
	// CookieName defaults to "token"; Authorization: Bearer is always accepted.
	CookieName string
}

// Middleware verifies the session token and puts the user id in the context.
// No token or a bad one is 401; a token for a deleted user is 404.
func Middleware(opts Options) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = CookieToken
	}
	return func(c *gin.Context) {
		token := tokenFrom(c, opts.CookieName)
		if token == "" {
			apiresp.Fail(c, errs.ErrTokenMissing.Wrap())
			return
		}
		claims, err := jwtsec.Verify(opts.JWT, token)
		if err != nil {
			apiresp.Fail(c, errs.ErrTokenInvalid.WrapMsg(err.Error()))
			return
		}
		if opts.Users != nil {
			ok, err := opts.Users.Exists(c.Request.Context(), claims.UserID)
			if err != nil {
				apiresp.Fail(c, err)
				return
			}
			if !ok {
				apiresp.Fail(c, ErrUserGone.WrapMsg("", "user", claims.UserID))
				return
			}
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}

func tokenFrom(c *gin.Context, cookie string) string {
	if v, err := c.Cookie(cookie); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}

// UserID returns the id Middleware stored, or "" on unauthenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
