package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/config"
	"github.com/legisdoc/parecer/internal/storage"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	originalStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2025-03-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
		os.Stdout = originalStdout
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done

	output := buf.String()
	for _, expected := range []string{
		"Parecer",
		"Version: " + testVersion,
		"Build Time: 2025-03-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.TemplateDir = filepath.Join(dir, "templates_docx")
	cfg.GeneratedDir = filepath.Join(dir, "generated")
	cfg.DBDSN = filepath.Join(dir, "database.db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

func TestRun_InitDB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Command = config.CommandInitDB

	if err := run(context.Background(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("run(init-db) failed: %v", err)
	}
	// Seeding twice must not duplicate committees.
	if err := run(context.Background(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("second run(init-db) failed: %v", err)
	}

	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer db.Close()

	committees, err := storage.NewStore(db).CommitteesWithMembers(context.Background())
	if err != nil {
		t.Fatalf("failed to list committees: %v", err)
	}
	if len(committees) != len(storage.DefaultCommittees) {
		t.Errorf("expected %d committees, got %d", len(storage.DefaultCommittees), len(committees))
	}
}

func TestRun_BadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "postgres"

	if err := run(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestApp_Router(t *testing.T) {
	cfg := testConfig(t)
	db, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := storage.Bootstrap(context.Background(), db, cfg.DBDriver); err != nil {
		t.Fatalf("failed to bootstrap: %v", err)
	}

	a, err := newApp(cfg, db, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}

	rec := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/committees", nil)
	a.router(zap.NewNop()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from committee list, got %d", rec.Code)
	}

	cfg.Mode = config.ModeStdio
	if _, err := a.mcpServer(cfg, zap.NewNop()); err != nil {
		t.Errorf("mcpServer failed: %v", err)
	}
}
