// Training backend client over HTTP
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/shared"
)

const DefaultBaseURL string = "http://localhost:8000"

var _ TrainingAPI = (*TrainingClient)(nil)

// TrainingClient implements [TrainingAPI] against the backend's REST endpoints.
type TrainingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTrainingClient creates a new client for the backend at baseURL.
//
// An empty baseURL falls back to [DefaultBaseURL]; a nil client to [http.DefaultClient].
func NewTrainingClient(baseURL string, client *http.Client) *TrainingClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &TrainingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the backend address requests are sent to.
func (c *TrainingClient) BaseURL() string {
	return c.baseURL
}

// StartTraining uploads the dataset as multipart form data.
//
// Calls POST /api/train with fields "dataset" and "model_type".
func (c *TrainingClient) StartTraining(ctx context.Context, req TrainingRequest) (*models.TrainingSession, error) {
	if req.Dataset == nil {
		return nil, shared.ErrNoDataset
	}
	if !req.ModelType.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrInvalidModelType, req.ModelType)
	}

	body, contentType, err := encodeTrainingForm(req)
	if err != nil {
		return nil, err
	}

	var session models.TrainingSession
	if err := c.doRequest(ctx, http.MethodPost, "/api/train", body, contentType, &session); err != nil {
		return nil, err
	}
	if session.RunID == "" {
		return nil, fmt.Errorf("%w: response missing run_id", shared.ErrAPIRequest)
	}

	return &session, nil
}

// GetProgress fetches the progress of runID.
//
// Calls GET /api/progress/{run_id}.
func (c *TrainingClient) GetProgress(ctx context.Context, runID string) (*models.Progress, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run ID is required", shared.ErrMissingArgument)
	}

	var progress models.Progress
	endpoint := "/api/progress/" + url.PathEscape(runID)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, "", &progress); err != nil {
		return nil, err
	}

	if progress.Status == "" {
		progress.Status = models.StatusInProgress
	}
	return &progress, nil
}

func encodeTrainingForm(req TrainingRequest) (*bytes.Buffer, string, error) {
	src, err := req.Dataset.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidDataset, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("dataset", req.Dataset.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to read dataset: %w", err)
	}
	if err := w.WriteField("model_type", string(req.ModelType)); err != nil {
		return nil, "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func (c *TrainingClient) doRequest(ctx context.Context, method, endpoint string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// statusError converts a non-2xx response into an error carrying the backend's message when it sent one.
func statusError(resp *http.Response) error {
	sentinel := shared.ErrAPIRequest
	if resp.StatusCode == http.StatusNotFound {
		sentinel = shared.ErrRunNotFound
	}

	var errResp struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		for _, msg := range []string{errResp.Error, errResp.Detail, errResp.Message} {
			if msg != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: msg, err: sentinel}
			}
		}
	}
	return &APIError{StatusCode: resp.StatusCode, err: sentinel}
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v (status %d): %s", e.err, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: status %d", e.err, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.err }

// ErrorMessage extracts the backend-supplied message from err, falling back to err.Error().
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
