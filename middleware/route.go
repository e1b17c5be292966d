package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
}

// Router registers handlers, putting the auth middleware in front of the
// ones that ask for it.
type Router struct {
	routes gin.IRoutes
	auth   gin.HandlerFunc
}

func NewRouter(routes gin.IRoutes, auth gin.HandlerFunc) *Router {
	return &Router{routes: routes, auth: auth}
}

func (r *Router) handle(method, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth && r.auth != nil {
		r.routes.Handle(method, path, r.auth, handler)
		return
	}
	r.routes.Handle(method, path, handler)
}

func (r *Router) GET(path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.handle(http.MethodGet, path, handler, opt)
}

func (r *Router) POST(path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.handle(http.MethodPost, path, handler, opt)
}

func (r *Router) PUT(path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.handle(http.MethodPut, path, handler, opt)
}

func (r *Router) DELETE(path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.handle(http.MethodDelete, path, handler, opt)
}
