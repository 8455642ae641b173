// Package server provides HTTP routing, middleware, and an in-memory training backend for local development.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [NewBackendRouter] stacks [Recover], [Logging] and [RequireToken] in front of a [Handler].
//
// # Mock Backend
//
// [Backend] serves the two endpoints the client depends on plus a health check:
//
//	POST /api/train            multipart form: dataset (file), model_type
//	GET  /api/progress/{id}    progress, status, accuracy or message
//	GET  /health
//
// Each progress request advances the run by a fixed step. Runs complete with a per-model accuracy,
// or fail at 50% when their model type is listed in the configured failing models.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
