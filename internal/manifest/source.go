package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Resource is a companion download listed alongside a book, such as an answer key.
type Resource struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	AltURL string `json:"alt_url,omitempty"`
}

// Source describes where a book's files are hosted.
type Source struct {
	ID                  string     `json:"id,omitempty"`
	Title               string     `json:"title"`
	SourceBaseURL       string     `json:"source_base_url"`
	PackageDocumentPath string     `json:"package_document_path"`
	CoverImageURL       string     `json:"cover_image_url,omitempty"`
	Resources           []Resource `json:"resources,omitempty"`
}

// ErrInvalidSource marks a source description that cannot drive a reconstruction.
var ErrInvalidSource = errors.New("invalid source")

// LoadSource reads a JSON source description from path.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read source: %w", err)
	}
	var src Source
	if err := json.Unmarshal(data, &src); err != nil {
		return Source{}, fmt.Errorf("decode source %s: %w", path, err)
	}
	src.normalize()
	if err := src.Validate(); err != nil {
		return Source{}, err
	}
	return src, nil
}

func (s *Source) normalize() {
	s.Title = strings.TrimSpace(s.Title)
	s.SourceBaseURL = strings.TrimRight(strings.TrimSpace(s.SourceBaseURL), "/")
	s.PackageDocumentPath = strings.TrimLeft(strings.TrimSpace(s.PackageDocumentPath), "/")
	s.CoverImageURL = strings.TrimSpace(s.CoverImageURL)
}

// Validate reports whether the source names an absolute http(s) base URL and a
// root-relative package document path.
func (s Source) Validate() error {
	base, err := url.Parse(s.SourceBaseURL)
	if err != nil || s.SourceBaseURL == "" {
		return fmt.Errorf("%w: source_base_url %q", ErrInvalidSource, s.SourceBaseURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return fmt.Errorf("%w: source_base_url must be http or https, got %q", ErrInvalidSource, base.Scheme)
	}
	if _, ok := cleanRelative(s.PackageDocumentPath); !ok {
		return fmt.Errorf("%w: package_document_path %q", ErrInvalidSource, s.PackageDocumentPath)
	}
	for i, res := range s.Resources {
		if strings.TrimSpace(res.Name) == "" || strings.TrimSpace(res.URL) == "" {
			return fmt.Errorf("%w: resource %d needs name and url", ErrInvalidSource, i)
		}
	}
	return nil
}

// PackageDocumentURL is the remote location of the package document.
func (s Source) PackageDocumentURL() string {
	return joinURL(s.SourceBaseURL, strings.TrimLeft(s.PackageDocumentPath, "/"))
}

func joinURL(base, rel string) string {
	base = strings.TrimRight(base, "/")
	if rel == "" || rel == "." {
		return base
	}
	return base + "/" + rel
}
