// Package router maps resource actions onto chi routes and keeps a named
// route table for introspection and URL generation.
package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/autocrud/internal/web/middleware"
)

// Router manages HTTP routing using chi framework
type Router struct {
	mux    chi.Router
	routes []*Route
	named  map[string]*Route

	chain *middleware.Chain
}

// Route represents a single registered route
type Route struct {
	Pattern string
	Method  string
	Handler http.HandlerFunc
	Name    string

	// Resource metadata for generated routes
	ResourceName string
	Operation    Operation
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Method    string `json:"method"`
	Pattern   string `json:"pattern"`
	Name      string `json:"name"`
	Resource  string `json:"resource,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// NewRouter creates a new Router instance with JSON 404/405 handlers.
func NewRouter() *Router {
	r := &Router{
		mux:   chi.NewRouter(),
		named: make(map[string]*Route),
		chain: middleware.NewChain(),
	}
	r.mux.NotFound(NotFoundHandler())
	r.mux.MethodNotAllowed(MethodNotAllowedHandler())
	return r
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware to every route. chi requires middleware to be added
// before the first route.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.chain.Use(m)
		r.mux.Use(m)
	}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) *Route {
	return r.addRoute(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc) *Route {
	return r.addRoute(http.MethodPost, pattern, handler)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.HandlerFunc) *Route {
	return r.addRoute(http.MethodPut, pattern, handler)
}

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, handler http.HandlerFunc) *Route {
	return r.addRoute(http.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc) *Route {
	return r.addRoute(http.MethodDelete, pattern, handler)
}

func (r *Router) addRoute(method, pattern string, handler http.HandlerFunc) *Route {
	r.mux.Method(method, pattern, handler)

	route := &Route{
		Pattern: pattern,
		Method:  method,
		Handler: handler,
	}
	r.routes = append(r.routes, route)
	return route
}

// handle registers pattern and, for non-root patterns, the trailing-slash
// variant. Only the canonical pattern enters the route table.
func (r *Router) handle(method, pattern string, handler http.HandlerFunc) *Route {
	route := r.addRoute(method, pattern, handler)
	if pattern != "/" && !strings.HasSuffix(pattern, "/") {
		r.mux.Method(method, pattern+"/", handler)
	}
	return route
}

// Named sets the route name and indexes it on the router.
func (r *Router) Named(route *Route, name string) error {
	if _, exists := r.named[name]; exists {
		return fmt.Errorf("route name %s already registered", name)
	}
	route.Name = name
	r.named[name] = route
	return nil
}

// Routes returns the route table in registration order.
func (r *Router) Routes() []RouteInfo {
	infos := make([]RouteInfo, 0, len(r.routes))
	for _, route := range r.routes {
		info := RouteInfo{
			Method:   route.Method,
			Pattern:  route.Pattern,
			Name:     route.Name,
			Resource: route.ResourceName,
		}
		if route.ResourceName != "" {
			info.Operation = route.Operation.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// GetRoute returns a route by name
func (r *Router) GetRoute(name string) (*Route, error) {
	route, ok := r.named[name]
	if !ok {
		return nil, fmt.Errorf("route not found: %s", name)
	}
	return route, nil
}

// URL generates a URL for a named route with parameters
func (r *Router) URL(name string, params map[string]string) (string, error) {
	route, err := r.GetRoute(name)
	if err != nil {
		return "", err
	}

	url := route.Pattern
	for key, value := range params {
		url = strings.ReplaceAll(url, "{"+key+"}", value)
	}
	if strings.Contains(url, "{") {
		return "", fmt.Errorf("missing parameter values for route: %s", name)
	}
	return url, nil
}

// RouteList returns a formatted list of all routes
func (r *Router) RouteList() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-8s %-40s %s\n", "METHOD", "PATTERN", "NAME"))
	for _, info := range r.Routes() {
		sb.WriteString(fmt.Sprintf("%-8s %-40s %s\n", info.Method, info.Pattern, info.Name))
	}
	return sb.String()
}
