package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	stagingDir string
	outputDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("EXTRACTOR_TOKEN", "")
	t.Setenv("EXTRACTOR_CONFIG", "")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		stagingDir: filepath.Join(base, "staging"),
		outputDir:  filepath.Join(base, "books"),
	}
	content := fmt.Sprintf(
		"[paths]\nstaging_dir = %q\noutput_dir = %q\nlog_dir = %q\n\n[mirror]\nworkers = 2\nbearer_token = \"s3cret\"\n",
		env.stagingDir,
		env.outputDir,
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeHeadlessArchive writes a Go-built EPUB with its central directory cut
// off, the shape a truncated download leaves behind.
func writeHeadlessArchive(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct {
		name   string
		method uint16
		body   string
	}{
		{"mimetype", zip.Store, "application/epub+zip"},
		{"OEBPS/content.opf", zip.Deflate, "<package/>"},
		{"OEBPS/chapter1.xhtml", zip.Deflate, strings.Repeat("<p>chapter</p>", 40)},
	}
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method})
		if err != nil {
			t.Fatalf("create %s: %v", f.name, err)
		}
		if _, err := io.WriteString(w, f.body); err != nil {
			t.Fatalf("write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	data := buf.Bytes()
	cut := bytes.Index(data, []byte("PK\x01\x02"))
	if cut < 0 {
		t.Fatal("central directory not found")
	}
	if err := os.WriteFile(path, data[:cut], 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.stagingDir)
	requireContains(t, out, "<redacted>")
	if strings.Contains(out, "s3cret") {
		t.Fatalf("token leaked into output: %s", out)
	}
}

func TestCarveInspectAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	blob := filepath.Join(env.baseDir, "damaged.bin")
	writeHeadlessArchive(t, blob)

	out, _, err := runCLI(t, []string{"inspect", "--json", blob}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var scan struct {
		Recovered  int `json:"recovered"`
		Candidates []struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(out), &scan); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out)
	}
	if scan.Recovered != 3 {
		t.Fatalf("expected 3 recoverable entries, got %d: %s", scan.Recovered, out)
	}

	target := filepath.Join(env.baseDir, "recovered.epub")
	out, _, err = runCLI(t, []string{"carve", blob, "--out", target}, env.configPath)
	if err != nil {
		t.Fatalf("carve: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	requireContains(t, out, "Entries: 3")

	names := archiveNames(t, target)
	want := []string{"mimetype", "OEBPS/content.opf", "OEBPS/chapter1.xhtml"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("archive entries = %v, want %v", names, want)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		JobID    string `json:"job_id"`
		Strategy string `json:"strategy"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Strategy != "offline" || runs[0].Status != "succeeded" {
		t.Fatalf("unexpected history: %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "show", runs[0].JobID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].JobID)

	out, _, err = runCLI(t, []string{"logs", "--job", runs[0].JobID, "-n", "100"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "reconstruction started")
}

func TestCarveRejectsBlobWithoutEntries(t *testing.T) {
	env := setupCLITestEnv(t)
	blob := filepath.Join(env.baseDir, "noise.bin")
	if err := os.WriteFile(blob, bytes.Repeat([]byte{0xAB}, 4096), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}

	_, _, err := runCLI(t, []string{"carve", blob, "--name", "noise"}, env.configPath)
	if err == nil {
		t.Fatal("expected carve to fail")
	}
	requireContains(t, err.Error(), "no entries recovered")
	if _, statErr := os.Stat(filepath.Join(env.outputDir, "noise.epub")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err = %v", statErr)
	}
}

func TestMirrorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	const opf = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Field Notes</dc:title>
  </metadata>
  <manifest>
    <item id="ch1" href="chapter1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
</package>
`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/OEBPS/content.opf":
			_, _ = io.WriteString(w, opf)
		case "/OEBPS/chapter1.xhtml":
			_, _ = io.WriteString(w, "<html><body>one</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	source := filepath.Join(env.baseDir, "book.json")
	body := fmt.Sprintf(`{"id": "notes-1", "title": "Field Notes", "source_base_url": %q, "package_document_path": "OEBPS/content.opf"}`, srv.URL)
	if err := os.WriteFile(source, []byte(body), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, _, err := runCLI(t, []string{"mirror", "--source", source}, env.configPath)
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	target := filepath.Join(env.outputDir, "Field Notes.epub")
	requireContains(t, out, "Wrote "+target)
	requireContains(t, out, "1 fetched")

	names := archiveNames(t, target)
	if len(names) == 0 || names[0] != "mimetype" {
		t.Fatalf("expected mimetype first, got %v", names)
	}
	requireContains(t, strings.Join(names, ","), "OEBPS/chapter1.xhtml")

	entries, err := os.ReadDir(env.stagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected staging area to be removed, found %d entries", len(entries))
	}
}

func TestMirrorRequiresSource(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"mirror"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without --source")
	}
	requireContains(t, err.Error(), "--source")
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "No staging areas found")

	orphan := filepath.Join(env.stagingDir, "0f1e2d3c-aaaa-bbbb-cccc-000000000000")
	if err := os.MkdirAll(orphan, 0o755); err != nil {
		t.Fatalf("mkdir orphan: %v", err)
	}
	if err := os.WriteFile(filepath.Join(orphan, "content.opf"), []byte("<package/>"), 0o644); err != nil {
		t.Fatalf("write orphan file: %v", err)
	}

	out, _, err = runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "0f1e2d3c")
	requireContains(t, out, "Total: 1 areas")

	out, _, err = runCLI(t, []string{"staging", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "No stale staging areas to clean")

	out, _, err = runCLI(t, []string{"staging", "clean", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean --all: %v", err)
	}
	requireContains(t, out, "Removed 1 idle staging areas")
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("expected orphan removed, stat err = %v", err)
	}
}

func TestCheckListsDirectoryChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, _ := runCLI(t, []string{"check"}, env.configPath)
	requireContains(t, out, "Staging directory")
	requireContains(t, out, "Log directory")
}

func TestShouldSkipConfigInheritsAnnotation(t *testing.T) {
	root := newRootCommand()
	initCmd, _, err := root.Find([]string{"config", "init"})
	if err != nil {
		t.Fatalf("find config init: %v", err)
	}
	if !shouldSkipConfig(initCmd) {
		t.Fatal("expected config init to skip config loading")
	}
	carveCmd, _, err := root.Find([]string{"carve"})
	if err != nil {
		t.Fatalf("find carve: %v", err)
	}
	if shouldSkipConfig(carveCmd) {
		t.Fatal("expected carve to load config")
	}
}
