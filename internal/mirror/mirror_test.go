package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/staging"
)

type bookServer struct {
	*httptest.Server
	hits     atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func newBookServer(t *testing.T, files map[string]string, delay time.Duration) *bookServer {
	t.Helper()
	bs := &bookServer{}
	bs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs.hits.Add(1)
		cur := bs.inFlight.Add(1)
		defer bs.inFlight.Add(-1)
		for {
			peak := bs.peak.Load()
			if cur <= peak || bs.peak.CompareAndSwap(peak, cur) {
				break
			}
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(bs.Close)
	return bs
}

func testModel(base string, hrefs ...string) manifest.Model {
	m := manifest.Model{SourceBaseURL: base, PackageDocumentPath: "OEBPS/content.opf"}
	for _, h := range hrefs {
		m.Assets = append(m.Assets, manifest.AssetReference{Href: h})
	}
	return m
}

func newArea(t *testing.T) *staging.Area {
	t.Helper()
	area, err := staging.Create(t.TempDir())
	if err != nil {
		t.Fatalf("staging.Create: %v", err)
	}
	t.Cleanup(func() { _ = area.Close(true) })
	return area
}

func TestRunMirrorsEveryAsset(t *testing.T) {
	files := map[string]string{
		"OEBPS/Text/ch1.xhtml": "<html>one</html>",
		"OEBPS/Styles/a.css":   "body{}",
		"Images/fig.png":       "\x89PNG",
	}
	srv := newBookServer(t, files, 0)
	model := testModel(srv.URL, "Text/ch1.xhtml", "Styles/a.css", "../Images/fig.png")
	area := newArea(t)

	var got []int
	var mu sync.Mutex
	reporter := progress.NewReporter(func(p int) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	})

	m := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{Workers: 2, Progress: reporter, Range: progress.Range{From: 0, To: 90}})
	result, err := m.Run(context.Background(), model, area)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 3 || result.Skipped != 0 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Err() != nil {
		t.Fatalf("expected no partial failure, got %v", result.Err())
	}
	for rel, want := range files {
		data, err := os.ReadFile(filepath.Join(area.Path, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if string(data) != want {
			t.Fatalf("%s content = %q, want %q", rel, data, want)
		}
	}
	if reporter.Last() != 90 {
		t.Fatalf("expected progress to end at 90, got %d (%v)", reporter.Last(), got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("progress regressed: %v", got)
		}
	}
}

func TestRunFetchesAliasedHrefsOnce(t *testing.T) {
	srv := newBookServer(t, map[string]string{"OEBPS/a.xhtml": "<html>a</html>"}, 5*time.Millisecond)
	hrefs := []string{"a.xhtml", "./a.xhtml", "Text/../a.xhtml", "%61.xhtml", "a.xhtml#top"}
	for i := range 7 {
		hrefs = append(hrefs, strings.Repeat("./", i+2)+"a.xhtml")
	}
	model := testModel(srv.URL, hrefs...)
	area := newArea(t)

	m := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{Workers: len(hrefs)})
	result, err := m.Run(context.Background(), model, area)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total != 1 || result.Fetched != 1 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if hits := srv.hits.Load(); hits != 1 {
		t.Fatalf("expected one request, got %d", hits)
	}
	entries, err := os.ReadDir(filepath.Join(area.Path, "OEBPS"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.xhtml" {
		t.Fatalf("unexpected staged files %v", entries)
	}
}

func TestRunCollectsFailuresWithoutStopping(t *testing.T) {
	files := map[string]string{
		"OEBPS/a.xhtml": "a",
		"OEBPS/c.xhtml": "c",
	}
	srv := newBookServer(t, files, 0)
	model := testModel(srv.URL, "a.xhtml", "missing.xhtml", "c.xhtml")
	area := newArea(t)

	result, err := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{Workers: 1}).Run(context.Background(), model, area)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 2 {
		t.Fatalf("expected 2 fetched, got %d", result.Fetched)
	}
	if len(result.Failures) != 1 || result.Failures[0].Href != "missing.xhtml" {
		t.Fatalf("unexpected failures %+v", result.Failures)
	}
	var fetchErr *fetch.FetchError
	if !errors.As(result.Failures[0].Err, &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", result.Failures[0].Err)
	}
	var partial *PartialMirrorFailure
	if !errors.As(result.Err(), &partial) || len(partial.Failures) != 1 {
		t.Fatalf("expected PartialMirrorFailure, got %v", result.Err())
	}
	if _, err := os.Stat(filepath.Join(area.Path, "OEBPS", "missing.xhtml")); !os.IsNotExist(err) {
		t.Fatalf("failed asset must not leave a file, stat err=%v", err)
	}
}

func TestRunResumesWithoutRefetching(t *testing.T) {
	files := map[string]string{"OEBPS/a.xhtml": "a", "OEBPS/b.xhtml": "b"}
	srv := newBookServer(t, files, 0)
	model := testModel(srv.URL, "a.xhtml", "b.xhtml")
	area := newArea(t)
	m := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{})

	if _, err := m.Run(context.Background(), model, area); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	hits := srv.hits.Load()

	second, err := m.Run(context.Background(), model, area)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Skipped != 2 || second.Fetched != 0 {
		t.Fatalf("expected all assets resumed, got %+v", second)
	}
	if srv.hits.Load() != hits {
		t.Fatalf("resume must not refetch: hits %d -> %d", hits, srv.hits.Load())
	}
}

func TestRunRefetchesEmptyFile(t *testing.T) {
	srv := newBookServer(t, map[string]string{"OEBPS/a.xhtml": "full"}, 0)
	model := testModel(srv.URL, "a.xhtml")
	area := newArea(t)
	target := filepath.Join(area.Path, "OEBPS", "a.xhtml")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{}).Run(context.Background(), model, area)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 1 {
		t.Fatalf("expected zero-byte file to be refetched, got %+v", result)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "full" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRunRespectsWorkerBound(t *testing.T) {
	files := map[string]string{}
	var hrefs []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["OEBPS/"+name+".xhtml"] = name
		hrefs = append(hrefs, name+".xhtml")
	}
	srv := newBookServer(t, files, 20*time.Millisecond)
	model := testModel(srv.URL, hrefs...)

	result, err := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{Workers: 3}).Run(context.Background(), model, newArea(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != len(hrefs) {
		t.Fatalf("expected %d fetched, got %d", len(hrefs), result.Fetched)
	}
	if peak := srv.peak.Load(); peak > 3 {
		t.Fatalf("expected at most 3 concurrent fetches, saw %d", peak)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	files := map[string]string{}
	var hrefs []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files["OEBPS/"+name] = name
		hrefs = append(hrefs, name)
	}
	srv := newBookServer(t, files, 30*time.Millisecond)
	model := testModel(srv.URL, hrefs...)

	ctx, cancel := context.WithCancel(context.Background())
	reporter := progress.NewReporter(func(p int) {
		if p > 0 {
			cancel()
		}
	})
	_, err := New(fetch.New(fetch.WithHTTPClient(srv.Client())), Options{Workers: 1, Progress: reporter}).Run(ctx, model, newArea(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if hits := srv.hits.Load(); hits >= int64(len(hrefs)) {
		t.Fatalf("expected cancellation to stop new fetches, saw %d hits", hits)
	}
}

func TestRunEmptyModel(t *testing.T) {
	reporter := progress.NewReporter(nil)
	result, err := New(fetch.New(), Options{Progress: reporter, Range: progress.Range{From: 0, To: 90}}).Run(context.Background(), manifest.Model{PackageDocumentPath: "a.opf"}, newArea(t))
	if err != nil || result.Total != 0 {
		t.Fatalf("unexpected result %+v %v", result, err)
	}
	if reporter.Last() != 90 {
		t.Fatalf("empty mirror should complete its range, got %d", reporter.Last())
	}
}
