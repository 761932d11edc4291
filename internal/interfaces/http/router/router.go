package router

import (
	"net/http"
	"path"
	"sort"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a set of routes on a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup) []RouteInfo
}

// RouteInfo describes one mounted route
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

// Router mounts registrars under the /api prefix
type Router struct {
	engine     *gin.Engine
	basePath   string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// NewRouter creates a Router on engine
func NewRouter(engine *gin.Engine) *Router {
	return &Router{
		engine:   engine,
		basePath: "/api",
	}
}

// Use adds middleware applied to every API route
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// BasePath returns the prefix all registrars are mounted on
func (r *Router) BasePath() string {
	return r.basePath
}

// Setup mounts every registrar and returns the routes sorted by path
func (r *Router) Setup() []RouteInfo {
	api := r.engine.Group(r.basePath)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	var routes []RouteInfo
	for _, registrar := range r.registrars {
		routes = append(routes, registrar.RegisterRoutes(api)...)
	}
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

// DomainGroup collects the routes of one dashboard resource
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	methods  []string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers handler for each of methods on p
func (dg *DomainGroup) Handle(p string, handler gin.HandlerFunc, methods ...string) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{
		methods:  methods,
		path:     p,
		handlers: []gin.HandlerFunc{handler},
	})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(p string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(p, handler, http.MethodGet)
}

// POST registers a POST route
func (dg *DomainGroup) POST(p string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(p, handler, http.MethodPost)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(p string, handler gin.HandlerFunc) *DomainGroup {
	return dg.Handle(p, handler, http.MethodPatch)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) []RouteInfo {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	var mounted []RouteInfo
	for _, route := range dg.routes {
		full := path.Join(group.BasePath(), route.path)
		for _, method := range route.methods {
			group.Handle(method, route.path, route.handlers...)
			mounted = append(mounted, RouteInfo{Group: dg.name, Method: method, Path: full})
		}
	}
	return mounted
}
