package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrDescriptorUnavailable, StrategyOnline, "fetch package document", "", cause)
	if !errors.Is(err, ErrDescriptorUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected marker and cause in chain: %v", err)
	}
	want := "package document unavailable: online: fetch package document: connection reset"
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrOutput) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if err.Error() != "output error: reconstruction failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		err  error
		want history.Status
	}{
		{nil, history.StatusSucceeded},
		{fmt.Errorf("mirror: %w", context.Canceled), history.StatusCanceled},
		{Wrap(ErrStaging, StrategyOnline, "create", "", nil), history.StatusFailed},
	}
	for _, tc := range cases {
		if got := FailureStatus(tc.err); got != tc.want {
			t.Fatalf("FailureStatus(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestSniffRejection(t *testing.T) {
	cases := map[string]bool{
		"%PDF-1.7":                               false,
		"  <!DOCTYPE HTML><html>":                true,
		"<?xml version=\"1.0\"?><html>":          true,
		"PK\x03\x04mimetypeapplication/epub+zip": true,
		"":                                       true,
	}
	for head, rejected := range cases {
		if got := sniffRejection([]byte(head)) != ""; got != rejected {
			t.Fatalf("sniffRejection(%q) rejected=%v, want %v", head, got, rejected)
		}
	}
}
