package server

import (
	"net/http"
	"slices"
	"strings"
)

// LookupRouter dispatches lookup API requests through an [http.ServeMux].
// Unknown paths and disallowed methods get the API's JSON error body.
type LookupRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []string
}

func NewLookupRouter() *LookupRouter {
	return &LookupRouter{mux: http.NewServeMux()}
}

// Use appends middleware; the first one added is outermost.
func (r *LookupRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for path, answering any other method with 405.
// A GET route also serves HEAD.
func (r *LookupRouter) Handle(method, path string, handler http.Handler) {
	r.register(path, allowMethod(method, r.Apply(handler)))
}

// Handler registers h for every path it reports from [Handler.Routes].
func (r *LookupRouter) Handler(h Handler) {
	wrapped := r.Apply(h)
	for _, route := range h.Routes() {
		r.register(route, wrapped)
	}
}

// Routes returns the registered paths in sorted order.
func (r *LookupRouter) Routes() []string {
	routes := slices.Clone(r.routes)
	slices.Sort(routes)
	return routes
}

func (r *LookupRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		writeError(w, http.StatusNotFound, "no route for "+req.URL.Path)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler in the registered middleware.
func (r *LookupRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}

func (r *LookupRouter) register(path string, handler http.Handler) {
	r.mux.Handle(path, handler)
	r.routes = append(r.routes, path)
}

func allowMethod(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ok := strings.EqualFold(req.Method, method) ||
			(method == http.MethodGet && req.Method == http.MethodHead)
		if !ok {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next.ServeHTTP(w, req)
	})
}
