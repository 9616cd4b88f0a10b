package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/internal/config"
)

type countingCloser struct {
	calls int
	err   error
}

func (c *countingCloser) Close() error {
	c.calls++
	return c.err
}

func TestCloseClient(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	ok := &countingCloser{}
	closeClient(logger, "speech", ok)
	if ok.calls != 1 {
		t.Errorf("Expected Close to be called once, got %d", ok.calls)
	}

	failing := &countingCloser{err: errors.New("transport is closing")}
	closeClient(logger, "storage", failing)
	if failing.calls != 1 {
		t.Errorf("Expected Close to be called once, got %d", failing.calls)
	}
	entries := logs.FilterMessage("Failed to close client").All()
	if len(entries) != 1 || entries[0].ContextMap()["client"] != "storage" {
		t.Errorf("Expected one warning for the storage client, got %v", entries)
	}

	// adapters without a client and disabled adapters are skipped
	closeClient(logger, "memory", struct{}{})
	closeClient(logger, "disabled", nil)
	if logs.Len() != 1 {
		t.Errorf("Expected no further warnings, got %d entries", logs.Len())
	}
}

func TestNewObjectStore(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	store, err := newObjectStore(ctx, config.StorageConfig{Enabled: false, Provider: config.ProviderGCS}, logger)
	if err != nil || store != nil {
		t.Fatalf("Expected no store when disabled, got %v, %v", store, err)
	}

	dir := t.TempDir()
	p := filepath.Join(dir, "ebt-corpus", "manuals", "dbt.pdf")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err = newObjectStore(ctx, config.StorageConfig{Enabled: true, Provider: config.ProviderMemory, Dir: dir}, logger)
	if err != nil {
		t.Fatalf("newObjectStore() error = %v", err)
	}
	obj, err := store.Get(ctx, entities.ObjectURI{Bucket: "ebt-corpus", Path: "manuals/dbt.pdf"})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(obj.Content) != "%PDF-1.4" || obj.ContentType != "application/pdf" {
		t.Errorf("Unexpected object %q %s", obj.Content, obj.ContentType)
	}

	_, err = newObjectStore(ctx, config.StorageConfig{Enabled: true, Provider: config.ProviderMemory, Dir: filepath.Join(dir, "missing")}, logger)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist for a missing seed directory, got %v", err)
	}
}
