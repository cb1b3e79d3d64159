package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Stages wrap errors with one of
// these so the workflow manager can record the failure kind without inspecting
// client-specific error types.
var (
	ErrResolution           = errors.New("resolution error")
	ErrSubmission           = errors.New("submission error")
	ErrTranscriptionTimeout = errors.New("transcription timeout")
	ErrTranscriptionFailed  = errors.New("transcription backend failure")
	ErrRender               = errors.New("render error")
	ErrConfiguration        = errors.New("configuration error")
	ErrTransient            = errors.New("transient failure")
)

// FailureKind is the stable label persisted alongside a failed episode.
type FailureKind string

const (
	KindResolution           FailureKind = "resolution"
	KindSubmission           FailureKind = "submission"
	KindTranscriptionTimeout FailureKind = "transcription_timeout"
	KindTranscriptionFailed  FailureKind = "transcription_failed"
	KindRender               FailureKind = "render"
	KindConfiguration        FailureKind = "configuration"
	KindTransient            FailureKind = "transient"
	KindUnknown              FailureKind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to its failure kind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrResolution):
		return KindResolution
	case errors.Is(err, ErrSubmission):
		return KindSubmission
	case errors.Is(err, ErrTranscriptionTimeout):
		return KindTranscriptionTimeout
	case errors.Is(err, ErrTranscriptionFailed):
		return KindTranscriptionFailed
	case errors.Is(err, ErrRender):
		return KindRender
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
