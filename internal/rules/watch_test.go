package rules

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	is.NoErr(os.WriteFile(path, []byte(`{"keywords":[{"match":"a","reaction":"b"}]}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *Set, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.Default(), func(s *Set) { updates <- s })
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	is.NoErr(os.WriteFile(path, []byte(`{"keywords":[{"match":"眠い","reaction":"お疲れさまです。"}]}`), 0644))

	select {
	case set := <-updates:
		got, ok := set.React("眠いな")
		is.True(ok)
		is.Equal(got, "お疲れさまです。")
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never delivered the reloaded set")
	}

	cancel()
	select {
	case err := <-done:
		is.Equal(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop with its context")
	}
}

func TestWatch_BadFileKeepsPreviousSet(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	is.NoErr(os.WriteFile(path, []byte(`{}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *Set, 4)
	go func() {
		_ = Watch(ctx, path, slog.Default(), func(s *Set) { updates <- s })
	}()

	time.Sleep(100 * time.Millisecond)
	is.NoErr(os.WriteFile(path, []byte(`{broken`), 0644))

	select {
	case <-updates:
		t.Fatal("malformed file must not produce an update")
	case <-time.After(500 * time.Millisecond):
	}
}
