package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
)

var (
	// ErrDescriptorUnavailable means the package document could not be
	// fetched or parsed. Nothing can be mirrored without it.
	ErrDescriptorUnavailable = errors.New("package document unavailable")
	ErrValidation            = errors.New("validation error")
	ErrStaging               = errors.New("staging error")
	ErrBlobUnreadable        = errors.New("blob unreadable")
	ErrOutput                = errors.New("output error")
)

// Wrap builds an error message that includes strategy context while tagging
// it with marker for later classification. marker should be one of the
// sentinels above or a sentinel owned by a lower package.
func Wrap(marker error, strategy, operation, message string, err error) error {
	detail := buildDetail(strategy, operation, message)
	if marker == nil {
		marker = ErrOutput
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a reconstruction error to the ledger status.
func FailureStatus(err error) history.Status {
	switch {
	case err == nil:
		return history.StatusSucceeded
	case errors.Is(err, context.Canceled):
		return history.StatusCanceled
	default:
		return history.StatusFailed
	}
}

func buildDetail(strategy, operation, message string) string {
	parts := make([]string, 0, 3)
	if strategy = strings.TrimSpace(strategy); strategy != "" {
		parts = append(parts, strategy)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "reconstruction failure"
	}
	return strings.Join(parts, ": ")
}
