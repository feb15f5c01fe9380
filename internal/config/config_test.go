package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadShellDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CORTEX_DATA_DIR", "")

	cfg, err := LoadShell()
	if err != nil {
		t.Fatalf("LoadShell() error = %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:8190" {
		t.Fatalf("BindAddr = %q; want 127.0.0.1:8190", cfg.BindAddr)
	}
	if cfg.WindowSize != "1200,800" {
		t.Fatalf("WindowSize = %q; want 1200,800", cfg.WindowSize)
	}
	if cfg.HomeURL != "https://www.google.com" {
		t.Fatalf("HomeURL = %q; want https://www.google.com", cfg.HomeURL)
	}
	if cfg.FilterTTL != 6*time.Hour {
		t.Fatalf("FilterTTL = %v; want 6h", cfg.FilterTTL)
	}
	if cfg.ProfileDir != filepath.Join("./data", "profile") {
		t.Fatalf("ProfileDir = %q; want data/profile", cfg.ProfileDir)
	}
	if cfg.BarHeight != 0 {
		t.Fatalf("BarHeight = %d; want 0", cfg.BarHeight)
	}
	if cfg.CloseFocus != "shift" {
		t.Fatalf("CloseFocus = %q; want shift", cfg.CloseFocus)
	}
	if got := cfg.CDPURL(); got != "http://127.0.0.1:9230" {
		t.Fatalf("CDPURL() = %q; want http://127.0.0.1:9230", got)
	}
}

func TestLoadShellOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CORTEX_DATA_DIR", "/var/lib/cortex")
	t.Setenv("CORTEX_PORT_CANDIDATES", " 127.0.0.1:9001, ,127.0.0.1:9002 ")
	t.Setenv("CORTEX_FILTER_TTL", "90m")
	t.Setenv("CORTEX_FETCH_RETRIES", "-4")
	t.Setenv("CORTEX_CLOSE_FOCUS", "Previous")
	t.Setenv("CORTEX_LOG_LEVEL", "DEBUG")
	t.Setenv("CORTEX_RESIZE_POLL_MS", "5")
	t.Setenv("CORTEX_BROWSER_BINARY", "/opt/chromium/chrome")

	cfg, err := LoadShell()
	if err != nil {
		t.Fatalf("LoadShell() error = %v", err)
	}
	if want := []string{"127.0.0.1:9001", "127.0.0.1:9002"}; !reflect.DeepEqual(cfg.PortCandidates, want) {
		t.Fatalf("PortCandidates = %v; want %v", cfg.PortCandidates, want)
	}
	if cfg.ProfileDir != filepath.Join("/var/lib/cortex", "profile") {
		t.Fatalf("ProfileDir = %q; want profile under data dir", cfg.ProfileDir)
	}
	if cfg.BrowserBinary != "/opt/chromium/chrome" {
		t.Fatalf("BrowserBinary = %q; want /opt/chromium/chrome", cfg.BrowserBinary)
	}
	if cfg.FilterTTL != 90*time.Minute {
		t.Fatalf("FilterTTL = %v; want 90m", cfg.FilterTTL)
	}
	if cfg.FetchRetries != 0 {
		t.Fatalf("FetchRetries = %d; want clamped to 0", cfg.FetchRetries)
	}
	if cfg.CloseFocus != "previous" || cfg.LogLevel != "debug" {
		t.Fatalf("CloseFocus, LogLevel = %q, %q; want lower-cased", cfg.CloseFocus, cfg.LogLevel)
	}
	if cfg.ResizePollMS != 100 {
		t.Fatalf("ResizePollMS = %d; want clamped to 100", cfg.ResizePollMS)
	}
}

func TestLoadShellRejectsBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHROMIUM_CDP_PORT", "70000")
	if _, err := LoadShell(); err == nil {
		t.Fatal("LoadShell() error = nil; want out of range error")
	}
}

func TestLoadShellReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// godotenv never overrides a set variable; restore whatever was there.
	t.Setenv("CORTEX_HOME_URL", "")
	os.Unsetenv("CORTEX_HOME_URL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CORTEX_HOME_URL=https://start.test/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadShell()
	if err != nil {
		t.Fatalf("LoadShell() error = %v", err)
	}
	if cfg.HomeURL != "https://start.test/" {
		t.Fatalf("HomeURL = %q; want value from .env", cfg.HomeURL)
	}
}

func writeLists(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lists.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFilterLists(t *testing.T) {
	path := writeLists(t, `
lists:
  - name: a
    url: https://lists.test/a.txt
  - name: b
    url: https://lists.test/b.txt
    disabled: true
  - name: c
    url: http://lists.test/c.txt
`)
	cfg, err := LoadFilterLists(path)
	if err != nil {
		t.Fatalf("LoadFilterLists() error = %v", err)
	}
	want := []string{"https://lists.test/a.txt", "http://lists.test/c.txt"}
	if got := cfg.Sources(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Sources() = %v; want %v", got, want)
	}
}

func TestLoadFilterListsErrors(t *testing.T) {
	tests := map[string]string{
		"missing url":  "lists:\n  - name: a\n",
		"bad scheme":   "lists:\n  - name: a\n    url: ftp://lists.test/a.txt\n",
		"all disabled": "lists:\n  - name: a\n    url: https://lists.test/a.txt\n    disabled: true\n",
		"invalid yaml": "lists: [\n",
		"no lists":     "lists: []\n",
	}
	for name, body := range tests {
		if _, err := LoadFilterLists(writeLists(t, body)); err == nil {
			t.Errorf("%s: LoadFilterLists() error = nil; want error", name)
		}
	}
}

func TestLoadFilterListsMissingFile(t *testing.T) {
	_, err := LoadFilterLists(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadFilterLists() error = %v; want os.ErrNotExist", err)
	}
}
