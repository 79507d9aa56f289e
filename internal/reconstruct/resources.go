package reconstruct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/textutil"
)

// sniffLen is how much of a resource body is inspected before it is saved.
const sniffLen = 1024

// ErrResourceRejected marks a download that returned a web page or a book
// container instead of the listed file.
var ErrResourceRejected = errors.New("resource rejected")

// ResourceResult is the outcome of one companion download.
type ResourceResult struct {
	Name string
	Path string
	URL  string
	Err  error
}

// downloadResources saves each listed resource into dir, trying the primary
// URL and then the alternate. Failures are logged and returned, never fatal.
func (r *Reconstructor) downloadResources(ctx context.Context, j *run, dir string, resources []manifest.Resource) []ResourceResult {
	results := make([]ResourceResult, 0, len(resources))
	for _, res := range resources {
		if ctx.Err() != nil {
			break
		}
		name := textutil.SanitizeFileName(res.Name)
		if name == "" {
			name = textutil.SanitizeToken(res.Name)
		}
		result := ResourceResult{Name: res.Name, Path: filepath.Join(dir, name)}

		for _, url := range []string{res.URL, res.AltURL} {
			if strings.TrimSpace(url) == "" {
				continue
			}
			result.URL = url
			result.Err = r.saveResource(ctx, url, result.Path)
			if result.Err == nil {
				break
			}
			j.logger.Debug("resource attempt failed", logging.String("url", url), logging.Error(result.Err))
		}

		if result.Err != nil {
			logging.WarnWithContext(j.logger, "resource not downloaded", "resource_download_failed",
				logging.String("name", res.Name),
				logging.Error(result.Err),
				logging.String(logging.FieldImpact, "companion file missing; the book itself is unaffected"),
			)
		} else {
			j.logger.Info("resource downloaded",
				logging.String("name", res.Name),
				logging.String("path", result.Path),
			)
		}
		results = append(results, result)
	}
	return results
}

func (r *Reconstructor) saveResource(ctx context.Context, url, dst string) error {
	resp, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if ct := strings.ToLower(resp.ContentType); strings.Contains(ct, "text/html") || strings.Contains(ct, "application/epub+zip") {
		return fmt.Errorf("%w: content type %q", ErrResourceRejected, resp.ContentType)
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", url, err)
	}
	head = head[:n]
	if reason := sniffRejection(head); reason != "" {
		return fmt.Errorf("%w: %s", ErrResourceRejected, reason)
	}
	if _, err := fileutil.WriteAtomic(dst, io.MultiReader(bytes.NewReader(head), resp.Body)); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

// sniffRejection inspects the start of a body for an HTML page or an EPUB
// container.
func sniffRejection(head []byte) string {
	if len(head) == 0 {
		return "empty body"
	}
	if bytes.Contains(head, []byte("mimetypeapplication/epub+zip")) {
		return "body is an EPUB container"
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<html")) {
		return "body is an HTML page"
	}
	return ""
}
