package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// Origin answers CORS for the listed origins with credentials allowed.
// Requests from other origins pass through without CORS headers.
func Origin(origins []string) gin.HandlerFunc {
	allowed := lo.SliceToMap(origins, func(o string) (string, struct{}) {
		return strings.TrimRight(strings.TrimSpace(o), "/"), struct{}{}
	})
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

// AllowOrigin is the websocket upgrader's origin check for the same list.
// Requests without an Origin header are not browsers and are let through.
func AllowOrigin(origins []string) func(r *http.Request) bool {
	allowed := lo.SliceToMap(origins, func(o string) (string, struct{}) {
		return strings.TrimRight(strings.TrimSpace(o), "/"), struct{}{}
	})
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
