// Package services defines the [TrainingAPI] interface for the remote training backend and implements it over HTTP.
//
// # Endpoints
//
//   - POST {base}/api/train : multipart form with "dataset" (file) and "model_type"; returns a run ID
//   - GET {base}/api/progress/{run_id} : progress percentage, status, and accuracy or message
//
// # Client
//
// [TrainingClient] is a thin wrapper. It performs no retries and no backoff.
// Callers decide what to do with an error; the session state machine in tasks stops polling on the first failure.
//
// The base URL defaults to http://localhost:8000 and is normally supplied by the [api] config section
// or the TRAINX_API_URL environment variable.
//
// # Authentication
//
// [NewHTTPClient] wraps the transport with an [oauth2.StaticTokenSource] when a bearer token is configured.
//
// # Error Handling
//
// Transport and status failures wrap [shared.ErrAPIRequest]. A 404 from the progress endpoint wraps
// [shared.ErrRunNotFound]. The backend's "error" or "detail" field is included in the message when present.
package services
