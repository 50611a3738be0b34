package launcher

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Stage identifies which step of a launch failed.
type Stage string

const (
	// StageFetch is the CronJob read.
	StageFetch Stage = "fetch"
	// StageConstruct is building the Job from the CronJob template.
	StageConstruct Stage = "construct"
	// StageSubmit is the Job create.
	StageSubmit Stage = "submit"
)

func (s Stage) action() string {
	switch s {
	case StageFetch:
		return "fetch CronJob"
	case StageConstruct:
		return "build Job from CronJob"
	case StageSubmit:
		return "create Job"
	default:
		return string(s)
	}
}

// LaunchError describes a failed launch. StatusCode and Body are set when
// the API server answered with a non-success status; StatusCode is zero for
// transport failures and construct errors.
type LaunchError struct {
	Stage      Stage
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to %s: %d %s", e.Stage.action(), e.StatusCode, e.Body)
	}
	return fmt.Sprintf("failed to %s: %v", e.Stage.action(), e.Err)
}

// Unwrap returns the underlying client error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// newLaunchError wraps a client error, extracting the HTTP status and the
// response body when the cluster answered.
func newLaunchError(stage Stage, err error) *LaunchError {
	le := &LaunchError{Stage: stage, Err: err}

	var apiStatus apierrors.APIStatus
	if !errors.As(err, &apiStatus) {
		return le
	}

	status := apiStatus.Status()
	le.StatusCode = int(status.Code)
	le.Body = status.Message

	// Non-Status bodies are carried verbatim as an UnexpectedServerResponse cause.
	if status.Details != nil {
		for _, cause := range status.Details.Causes {
			if cause.Type == metav1.CauseTypeUnexpectedServerResponse && cause.Message != "" {
				le.Body = cause.Message
				break
			}
		}
	}
	return le
}
