package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRunNotFound        = fmt.Errorf("run not found")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Training session errors
	ErrNoDataset        = fmt.Errorf("no dataset selected")
	ErrInvalidDataset   = fmt.Errorf("invalid dataset")
	ErrTrainingActive   = fmt.Errorf("training already in progress")
	ErrInvalidModelType = fmt.Errorf("invalid model type")
	ErrTrainingFailed   = fmt.Errorf("training failed")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
