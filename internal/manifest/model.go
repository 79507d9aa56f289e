package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// AssetReference is one href from the package document manifest, relative to
// the directory of the package document.
type AssetReference struct {
	Href string
}

// Model is the parsed asset list of one book.
type Model struct {
	SourceBaseURL       string
	PackageDocumentPath string
	Assets              []AssetReference
	CoverImageURL       string
	Title               string
}

// RejectedHref is a manifest href dropped while parsing.
type RejectedHref struct {
	Href   string
	Reason string
}

// ErrInvalidModel marks a Model that violates its structural invariants.
var ErrInvalidModel = errors.New("invalid manifest model")

// PackageDir is the container directory holding the package document ("." at the root).
func (m Model) PackageDir() string {
	return path.Dir(m.PackageDocumentPath)
}

// PackageDocumentURL is the remote location of the package document.
func (m Model) PackageDocumentURL() string {
	return joinURL(m.SourceBaseURL, m.PackageDocumentPath)
}

// URL is the remote location of the asset.
func (a AssetReference) URL(m Model) string {
	ref := stripFragment(a.Href)
	return joinURL(m.SourceBaseURL, path.Join(m.PackageDir(), ref))
}

// StagingPath is the slash-separated location of the asset inside the
// container, which is also its path below the staging root.
func (a AssetReference) StagingPath(m Model) string {
	resolved, _ := resolveHref(m.PackageDir(), a.Href)
	return resolved
}

// Validate enforces the Model invariants: a root-relative package document
// path and contained asset hrefs that each resolve to a distinct staging path.
func (m Model) Validate() error {
	if _, ok := cleanRelative(m.PackageDocumentPath); !ok || m.PackageDocumentPath != strings.TrimLeft(m.PackageDocumentPath, "/") {
		return fmt.Errorf("%w: package document path %q", ErrInvalidModel, m.PackageDocumentPath)
	}
	seen := make(map[string]string, len(m.Assets))
	for _, asset := range m.Assets {
		if reason := checkHref(m.PackageDir(), asset.Href); reason != "" {
			return fmt.Errorf("%w: href %q: %s", ErrInvalidModel, asset.Href, reason)
		}
		target := asset.StagingPath(m)
		if first, dup := seen[target]; dup {
			return fmt.Errorf("%w: href %q duplicates %q", ErrInvalidModel, asset.Href, first)
		}
		seen[target] = asset.Href
	}
	return nil
}

type packageDocument struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// ParsePackageDocument builds a Model from the raw package document of src.
// Hrefs that are absolute, carry a scheme, or escape the container root are
// returned as rejected and left out of the model. Hrefs that resolve to the
// same staging path collapse to the first one seen.
func ParsePackageDocument(src Source, data []byte) (Model, []RejectedHref, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var doc packageDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Model{}, nil, fmt.Errorf("parse package document: %w", err)
	}

	model := Model{
		SourceBaseURL:       strings.TrimRight(src.SourceBaseURL, "/"),
		PackageDocumentPath: strings.TrimLeft(src.PackageDocumentPath, "/"),
		CoverImageURL:       src.CoverImageURL,
		Title:               strings.TrimSpace(src.Title),
	}
	if model.Title == "" && len(doc.Metadata.Titles) > 0 {
		model.Title = strings.TrimSpace(doc.Metadata.Titles[0])
	}

	var rejected []RejectedHref
	seen := make(map[string]struct{}, len(doc.Manifest.Items))
	dir := model.PackageDir()
	for _, item := range doc.Manifest.Items {
		href := strings.TrimSpace(item.Href)
		if reason := checkHref(dir, href); reason != "" {
			rejected = append(rejected, RejectedHref{Href: href, Reason: reason})
			continue
		}
		target, _ := resolveHref(dir, href)
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		model.Assets = append(model.Assets, AssetReference{Href: href})
	}

	if err := model.Validate(); err != nil {
		return Model{}, rejected, err
	}
	return model, rejected, nil
}

func checkHref(dir, href string) string {
	if href == "" {
		return "empty href"
	}
	if strings.HasPrefix(href, "/") || strings.HasPrefix(href, `\`) {
		return "absolute path"
	}
	if u, err := url.Parse(href); err != nil {
		return "malformed href"
	} else if u.Scheme != "" || u.Host != "" {
		return "foreign scheme or host"
	}
	ref := stripFragment(href)
	if ref == "" || strings.HasSuffix(ref, "/") {
		return "does not name a file"
	}
	resolved, ok := resolveHref(dir, href)
	if !ok {
		return "escapes container root"
	}
	if resolved == dir {
		return "does not name a file"
	}
	return ""
}

// resolveHref joins href onto dir after decoding percent escapes and
// dropping any fragment or query.
func resolveHref(dir, href string) (string, bool) {
	ref := stripFragment(href)
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	return cleanRelative(path.Join(dir, ref))
}

func cleanRelative(p string) (string, bool) {
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

func stripFragment(href string) string {
	if i := strings.IndexAny(href, "#?"); i >= 0 {
		return href[:i]
	}
	return href
}
