package models

import (
	"errors"
	"fmt"
)

// FailureKind classifies terminal pipeline failures. Every error leaving the
// pipeline carries exactly one kind; nothing is swallowed except diagnostics
// collection failures.
type FailureKind string

const (
	FailureBrowserLaunch   FailureKind = "BrowserLaunchFailed"
	FailureAuthentication  FailureKind = "AuthenticationFailed"
	FailureStateExtraction FailureKind = "StateExtractionFailed"
	FailureAssetDownload   FailureKind = "AssetDownloadFailed"
	FailureUpload          FailureKind = "UploadFailed"
	FailureRecordInsert    FailureKind = "RecordInsertFailed"
	FailureUnknown         FailureKind = "UnknownError"
)

// PipelineError is a classified, terminal pipeline failure.
type PipelineError struct {
	Kind       FailureKind
	Err        error
	Attempts   int             // Login attempts consumed, for FailureAuthentication
	HTTPStatus int             // Response status, for FailureAssetDownload
	Metrics    *ProcessMetrics // Phase timings captured before the failure
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with a failure classification.
func NewPipelineError(kind FailureKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// FailureKindOf returns the classification of err, or FailureUnknown for
// unclassified errors.
func FailureKindOf(err error) FailureKind {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return FailureUnknown
}
