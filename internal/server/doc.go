// Package server provides the HTTP lookup API: routing, middleware and handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// [LookupRouter] uses [http.ServeMux] for dispatch and answers unknown paths (404) and
// wrong methods (405) with a JSON {"error": ...} body.
//
// # Endpoints
//
// [NewAPI] assembles the router:
//
//	GET /resolve?q=   classification only: {"matched","kind","id","uri","url"}
//	GET /search?q=    full lookup; the Spotify body is written verbatim
//	GET /healthz      auth mode and token expiry
//	GET /metrics      Prometheus exposition of the client's registry
//
// Error-shaped Spotify bodies keep their upstream status. Token and transport failures are 502.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
