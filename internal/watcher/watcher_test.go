package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/jcg/internal/storage"
)

func TestIsSourceFile(t *testing.T) {
	w := &Watcher{extensions: []string{".java"}}
	assert.True(t, w.isSourceFile("src/Foo.java"))
	assert.False(t, w.isSourceFile("README.md"))
	assert.False(t, w.isSourceFile("pom.xml"))

	w = &Watcher{extensions: []string{".go"}}
	assert.True(t, w.isSourceFile("cmd/main.go"))
	assert.False(t, w.isSourceFile("cmd/main_test.go"))
}

func TestWatcherTriggersAnalysis(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	got := make(chan []string, 1)
	analyze := func(changed []string) (*storage.Stats, error) {
		got <- changed
		return &storage.Stats{Classes: 1}, nil
	}

	done := make(chan *storage.Stats, 1)
	w, err := New(dir, analyze,
		WithDebounceDelay(200*time.Millisecond),
		WithOnAnalysisDone(func(stats *storage.Stats, d time.Duration) { done <- stats }),
	)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	foo := filepath.Join(dir, "src", "Foo.java")
	bar := filepath.Join(dir, "src", "Bar.java")
	require.NoError(t, os.WriteFile(foo, []byte("class Foo {}"), 0o644))
	require.NoError(t, os.WriteFile(bar, []byte("class Bar {}"), 0o644))

	// Both writes land in one debounced batch, sorted.
	select {
	case files := <-got:
		assert.Equal(t, []string{bar, foo}, files)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for analysis")
	}

	select {
	case stats := <-done:
		assert.Equal(t, int64(1), stats.Classes)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for completion callback")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	got := make(chan []string, 1)
	analyze := func(changed []string) (*storage.Stats, error) {
		got <- changed
		return &storage.Stats{}, nil
	}

	w, err := New(dir, analyze, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))

	select {
	case files := <-got:
		t.Fatalf("unexpected analysis for %v", files)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherReportsAnalysisError(t *testing.T) {
	dir := t.TempDir()

	analyze := func(changed []string) (*storage.Stats, error) {
		return nil, errors.New("parse exploded")
	}

	errs := make(chan error, 1)
	w, err := New(dir, analyze,
		WithDebounceDelay(50*time.Millisecond),
		WithOnError(func(err error) { errs <- err }),
	)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Foo.java"), []byte("class Foo {}"), 0o644))

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "parse exploded")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestWatcherSkipsBuildDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "target"), 0o755))

	got := make(chan []string, 1)
	analyze := func(changed []string) (*storage.Stats, error) {
		got <- changed
		return &storage.Stats{}, nil
	}

	w, err := New(dir, analyze, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "target", "Gen.java"), []byte("class Gen {}"), 0o644))

	select {
	case files := <-got:
		t.Fatalf("unexpected analysis for %v", files)
	case <-time.After(500 * time.Millisecond):
	}
}
