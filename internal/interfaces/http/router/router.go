// Package router assembles the gin engine of the storefront API.
package router

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/write"
)

// APIPrefix is where every versioned route group is mounted
const APIPrefix = "/api/v1"

// writeMethods binds each write mode to the HTTP method of its route
var writeMethods = map[write.Mode]string{
	write.ModeCreate: http.MethodPost,
	write.ModeUpdate: http.MethodPatch,
	write.ModeUpsert: http.MethodPut,
}

// WriteMethod returns the HTTP method a write mode is served under, empty for
// an unknown mode
func WriteMethod(mode write.Mode) string {
	return writeMethods[mode]
}

// RouteInfo describes one mounted route
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// RouteGroup is a set of routes sharing a path prefix and a middleware chain
type RouteGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

// NewRouteGroup creates a group mounted at APIPrefix+prefix
func NewRouteGroup(name, prefix string) *RouteGroup {
	return &RouteGroup{name: name, prefix: prefix}
}

// Use appends middleware run before every route of the group
func (g *RouteGroup) Use(middleware ...gin.HandlerFunc) *RouteGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// GET registers a read route
func (g *RouteGroup) GET(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.Handle(http.MethodGet, path, handlers...)
}

// Write registers the route of one write mode. Modes share the path and are
// told apart by method.
func (g *RouteGroup) Write(mode write.Mode, path string, handlers ...gin.HandlerFunc) *RouteGroup {
	method := WriteMethod(mode)
	if method == "" {
		panic("router: no route method for write mode " + string(mode))
	}
	return g.Handle(method, path, handlers...)
}

// Handle registers a route with an explicit method
func (g *RouteGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *RouteGroup {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

func (g *RouteGroup) mount(api *gin.RouterGroup) []RouteInfo {
	group := api.Group(g.prefix)
	if len(g.middleware) > 0 {
		group.Use(g.middleware...)
	}
	mounted := make([]RouteInfo, 0, len(g.routes))
	for _, r := range g.routes {
		group.Handle(r.method, r.path, r.handlers...)
		mounted = append(mounted, RouteInfo{
			Group:  g.name,
			Method: r.method,
			Path:   joinPath(group.BasePath(), r.path),
		})
	}
	return mounted
}

// Mount registers the groups under APIPrefix and returns the mounted routes
// ordered by path, then method
func Mount(engine *gin.Engine, groups ...*RouteGroup) []RouteInfo {
	api := engine.Group(APIPrefix)
	var mounted []RouteInfo
	for _, g := range groups {
		mounted = append(mounted, g.mount(api)...)
	}
	sort.SliceStable(mounted, func(i, j int) bool {
		if mounted[i].Path != mounted[j].Path {
			return mounted[i].Path < mounted[j].Path
		}
		return mounted[i].Method < mounted[j].Method
	})
	return mounted
}

func joinPath(base, path string) string {
	if path == "" || path == "/" {
		return base
	}
	if base == "/" {
		return path
	}
	return base + path
}
