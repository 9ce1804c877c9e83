package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"claimprobe/internal/config"
)

func resetState() {
	CloseAll()
	logsDir = ""
	settings = config.LoggingConfig{}
}

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, ".claimprobe", "logs", date+"_"+string(cat)+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file for %s: %v", cat, err)
	}
	return string(data)
}

func TestAllCategoriesLog(t *testing.T) {
	resetState()
	defer resetState()

	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsCategoryEnabled(CategoryAuth) {
		t.Fatal("expected auth category enabled")
	}

	Auth("auth message %d", 1)
	API("api message")
	APIDebug("api debug")
	Search("search message")
	Bulk("bulk message")
	CSV("csv message")
	Report("report message")
	CloseAll()

	cases := map[Category]string{
		CategoryBoot:   "logging initialized",
		CategoryAuth:   "auth message 1",
		CategoryAPI:    "api debug",
		CategorySearch: "search message",
		CategoryBulk:   "bulk message",
		CategoryCSV:    "csv message",
		CategoryReport: "report message",
	}
	for cat, want := range cases {
		if got := readCategoryLog(t, dir, cat); !strings.Contains(got, want) {
			t.Errorf("%s log missing %q: %s", cat, want, got)
		}
	}
}

func TestDisabledModeWritesNothing(t *testing.T) {
	resetState()
	defer resetState()

	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	API("should be dropped")
	CloseAll()

	if _, err := os.Stat(filepath.Join(dir, ".claimprobe", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist outside debug mode")
	}
}

func TestCategoryFilter(t *testing.T) {
	resetState()
	defer resetState()

	dir := t.TempDir()
	cfg := config.LoggingConfig{DebugMode: true, Categories: map[string]bool{"api": false}}
	if err := Initialize(dir, cfg); err != nil {
		t.Fatal(err)
	}

	if IsCategoryEnabled(CategoryAPI) {
		t.Error("api category should be disabled")
	}
	API("dropped")
	Bulk("kept")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, ".claimprobe", "logs", date+"_api.log")); !os.IsNotExist(err) {
		t.Error("api log should not be created")
	}
	if got := readCategoryLog(t, dir, CategoryBulk); !strings.Contains(got, "kept") {
		t.Errorf("bulk log missing entry: %s", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	resetState()
	defer resetState()

	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatal(err)
	}

	l := Get(CategorySearch)
	l.Info("info hidden")
	l.Warn("warn shown")
	l.Error("error shown")
	CloseAll()

	got := readCategoryLog(t, dir, CategorySearch)
	if strings.Contains(got, "info hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(got, "warn shown") || !strings.Contains(got, "error shown") {
		t.Errorf("expected warn and error entries: %s", got)
	}
}

func TestJSONFormat(t *testing.T) {
	resetState()
	defer resetState()

	dir := t.TempDir()
	if err := Initialize(dir, config.LoggingConfig{DebugMode: true, JSONFormat: true}); err != nil {
		t.Fatal(err)
	}

	Get(CategoryAPI).Fields("request", "method", "POST", "status", 200)
	CloseAll()

	got := readCategoryLog(t, dir, CategoryAPI)
	if !strings.Contains(got, `"method":"POST"`) || !strings.Contains(got, `"status":200`) {
		t.Errorf("expected JSON fields, got: %s", got)
	}
}

func TestInitializeRequiresDir(t *testing.T) {
	resetState()
	if err := Initialize("", config.LoggingConfig{}); err == nil {
		t.Error("expected error for empty dir")
	}
}

func TestNoopLoggerSafe(t *testing.T) {
	l := &Logger{category: CategoryAPI}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Fields("x", "k", "v")
}
