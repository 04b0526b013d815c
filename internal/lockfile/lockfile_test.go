package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquire(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	lock, err := Acquire(dir, ":8080")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	h, err := ReadHolder(lock.Path())
	if err != nil {
		t.Fatalf("ReadHolder failed: %v", err)
	}
	if h.PID != os.Getpid() || h.Addr != ":8080" || h.StartedAt.IsZero() {
		t.Errorf("unexpected holder: %+v", h)
	}
}

func TestAcquire_Conflict(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, ":8080")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir, ":9090")
	if err == nil {
		second.Release()
		t.Fatal("second Acquire should fail while the lock is held")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	if lockErr.Holder.Addr != ":8080" {
		t.Errorf("conflict should report the holder's details, got %+v", lockErr.Holder)
	}
	if !strings.Contains(err.Error(), "(running)") || !strings.Contains(err.Error(), dir) {
		t.Errorf("unhelpful error message: %s", err)
	}
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after release")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}

	again, err := Acquire(dir, "")
	if err != nil {
		t.Fatalf("re-acquiring a released lock failed: %v", err)
	}
	again.Release()
}

func TestReadHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	content := "pid=4242\naddr=:7000\nstarted_at=2026-03-10T09:00:00Z\nnoise\nstarted_at_extra=1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := ReadHolder(path)
	if err != nil {
		t.Fatalf("ReadHolder failed: %v", err)
	}
	if h.PID != 4242 || h.Addr != ":7000" || h.StartedAt.Year() != 2026 {
		t.Errorf("unexpected holder: %+v", h)
	}

	if _, err := ReadHolder(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if got := (Holder{}).String(); got != "unknown process" {
		t.Errorf("unexpected zero holder string %q", got)
	}
}
