package service

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// maxResultErrors caps the errors kept on a result. A parse aborts on
// its first manifest error, so only repeated infrastructure failures
// can reach it.
const maxResultErrors = 30

// OperationResult records what happened to one manifest parse request
// across its attempts. It is stored in Redis next to the parse result.
type OperationResult struct {
	OperationID string `json:"operation_id"`

	// Attempt is the number of times a worker has tried this
	// operation.
	Attempt int `json:"attempt"`

	// Errors describes what went wrong. It is public so it can be
	// serialized, but access is locked internally with a mutex.
	Errors []*ManifestError `json:"errors"`

	// HasFatalError is set once a manifest error makes retrying
	// pointless.
	HasFatalError bool `json:"has_fatal_error"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	UnitCount  int `json:"unit_count"`
	GroupCount int `json:"group_count"`

	mutex *sync.RWMutex
}

func NewOperationResult(operationID string) *OperationResult {
	return &OperationResult{
		OperationID: operationID,
		Errors:      make([]*ManifestError, 0),
		mutex:       &sync.RWMutex{},
	}
}

// OperationResultFromJson restores a result saved with ToJson.
func OperationResultFromJson(jsonData string) (*OperationResult, error) {
	result := NewOperationResult("")
	if err := json.Unmarshal([]byte(jsonData), result); err != nil {
		return nil, err
	}
	return result, nil
}

func (result *OperationResult) ToJson() (string, error) {
	result.mutex.RLock()
	defer result.mutex.RUnlock()
	bytes, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Start begins a new attempt and clears the errors of the last one.
func (result *OperationResult) Start() {
	result.ClearErrors()
	result.Attempt++
	result.StartedAt = time.Now().UTC()
	result.FinishedAt = time.Time{}
}

func (result *OperationResult) Started() bool {
	return !result.StartedAt.IsZero()
}

func (result *OperationResult) Finish() {
	result.FinishedAt = time.Now().UTC()
}

func (result *OperationResult) Finished() bool {
	return !result.FinishedAt.IsZero()
}

func (result *OperationResult) RunTime() time.Duration {
	startTime := result.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := result.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

func (result *OperationResult) Succeeded() bool {
	result.mutex.RLock()
	succeeded := result.Finished() && len(result.Errors) == 0
	result.mutex.RUnlock()
	return succeeded
}

// AddError records err. Errors that are not ManifestErrors are
// recorded as infrastructure failures of operation.
func (result *OperationResult) AddError(operation string, err error) {
	var manifestErr *ManifestError
	if !errors.As(err, &manifestErr) {
		manifestErr = NewInfrastructureError(operation, err)
	}
	result.mutex.Lock()
	defer result.mutex.Unlock()
	if manifestErr.IsFatal() {
		result.HasFatalError = true
	}
	if len(result.Errors) >= maxResultErrors {
		return
	}
	result.Errors = append(result.Errors, manifestErr)
}

func (result *OperationResult) ClearErrors() {
	result.mutex.Lock()
	result.HasFatalError = false
	result.Errors = make([]*ManifestError, 0)
	result.mutex.Unlock()
}

func (result *OperationResult) HasErrors() bool {
	result.mutex.RLock()
	hasErrors := len(result.Errors) > 0
	result.mutex.RUnlock()
	return hasErrors
}

// FatalErrors returns the manifest errors among the recorded errors.
func (result *OperationResult) FatalErrors() (fatal []*ManifestError) {
	result.mutex.RLock()
	for _, err := range result.Errors {
		if err.IsFatal() {
			fatal = append(fatal, err)
		}
	}
	result.mutex.RUnlock()
	return fatal
}
