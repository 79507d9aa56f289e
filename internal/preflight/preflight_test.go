package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/config"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a one-byte minimum, got: %s", result.Detail)
	}
	result := CheckFreeSpace("space", dir, ^uint64(0))
	if result.Passed {
		t.Fatal("expected failure with an impossible minimum")
	}
	if !strings.Contains(result.Detail, "need") {
		t.Fatalf("expected requirement in detail, got %q", result.Detail)
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book/OEBPS/content.opf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<package/>"))
	}))
	defer srv.Close()

	client := fetch.New(fetch.WithHTTPClient(srv.Client()))
	good := manifest.Source{ID: "b1", SourceBaseURL: srv.URL + "/book", PackageDocumentPath: "OEBPS/content.opf"}
	if result := CheckSource(context.Background(), client, good); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	missing := good
	missing.PackageDocumentPath = "OEBPS/missing.opf"
	result := CheckSource(context.Background(), client, missing)
	if result.Passed || !strings.Contains(result.Detail, "HTTP 404") {
		t.Fatalf("expected HTTP 404 failure, got %+v", result)
	}

	invalid := good
	invalid.SourceBaseURL = "ftp://example.com"
	if result := CheckSource(context.Background(), client, invalid); result.Passed {
		t.Fatal("expected failure for non-http base URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = ""

	results := RunAll(context.Background(), &cfg, nil, nil)
	// staging access, staging free space, log access
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Name == "Staging free space" {
			continue
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_ReportsMissingOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StagingDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "absent")

	results := RunAll(context.Background(), &cfg, nil, nil)
	if !Failed(results) {
		t.Fatal("expected missing output directory to fail")
	}
}
