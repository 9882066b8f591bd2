package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	stateDir := t.TempDir()

	lock, err := Acquire(stateDir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(stateDir, LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("expected lock file at %s: %v", lockPath, err)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("expected lock file removed after release")
	}

	// Releasing twice is harmless.
	if err := lock.Release(); err != nil {
		t.Errorf("second release failed: %v", err)
	}
}

func TestAcquireCreatesStateDir(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := Acquire(stateDir)
	if err != nil {
		t.Fatalf("expected state directory created, got %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(stateDir); err != nil {
		t.Errorf("expected state directory to exist: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	stateDir := t.TempDir()

	first, err := Acquire(stateDir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	first.Release()

	second, err := Acquire(stateDir)
	if err != nil {
		t.Fatalf("failed to reacquire released lock: %v", err)
	}
	second.Release()
}

func TestParsePID(t *testing.T) {
	cases := []struct {
		content string
		want    int
	}{
		{"pid=1234\n", 1234},
		{"pid=1234", 1234},
		{"garbage", 0},
		{"pid=", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parsePID(c.content); got != c.want {
			t.Errorf("parsePID(%q) = %d, want %d", c.content, got, c.want)
		}
	}
}
