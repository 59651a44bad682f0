package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"api_token", "abc", "course_id", "c1", "dangling"})
	want := []interface{}{"api_token", "[REDACTED]", "course_id", "c1", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coursetrack.log")
	l, err := New("dev", path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.With("course_id", "c1").Info("lesson completed", "authorization", "Bearer xyz")
	l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "lesson completed") {
		t.Errorf("log missing message: %q", out)
	}
	if strings.Contains(out, "Bearer xyz") {
		t.Errorf("log leaked credential: %q", out)
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Warn("ignored", "k", "v")
	l.Sync()
}
