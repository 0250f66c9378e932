package procfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// writeProc creates /proc/<pid>/{stat,cmdline} under root. start is the
// process start time (field 22 of stat).
func writeProc(t *testing.T, root string, pid int, start uint64, cmdline string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Fields 4 through 52 of a Linux stat line; index 18 is field 22.
	fields := make([]string, 49)
	for i := range fields {
		fields[i] = "0"
	}
	fields[0] = "1"
	fields[18] = strconv.FormatUint(start, 10)
	stat := fmt.Sprintf("%d (proc%d) S %s\n", pid, pid, strings.Join(fields, " "))

	if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestResolver(t *testing.T, root string) *Resolver {
	t.Helper()
	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func TestResolver_Name(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 100, 10, "com.example.app\x00--flag\x00")
	writeProc(t, root, 200, 10, "/system/bin/surfaceflinger")
	writeProc(t, root, 300, 10, "")

	tests := []struct {
		name string
		pid  int
		want string
	}{
		{"first argument only", 100, "com.example.app"},
		{"no terminator", 200, "/system/bin/surfaceflinger"},
		{"kernel thread", 300, ""},
		{"missing pid", 400, ""},
		{"invalid pid", 0, ""},
	}

	r := newTestResolver(t, root)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Name(tt.pid); got != tt.want {
				t.Errorf("Name(%d) = %q, want %q", tt.pid, got, tt.want)
			}
		})
	}
	if n := r.Len(); n != 2 {
		t.Errorf("Len() = %d, want 2 (misses are not cached)", n)
	}
}

func TestResolver_MissIsRetried(t *testing.T) {
	root := t.TempDir()
	r := newTestResolver(t, root)

	if got := r.Name(43); got != "" {
		t.Fatalf("Name(43) = %q before the process exists", got)
	}
	writeProc(t, root, 43, 5, "late.starter\x00")
	if got := r.Name(43); got != "late.starter" {
		t.Errorf("Name(43) = %q, want late.starter", got)
	}
}

func TestResolver_ReusedPID(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 42, 100, "old\x00")

	r := newTestResolver(t, root)
	if got := r.Name(42); got != "old" {
		t.Fatalf("Name(42) = %q, want old", got)
	}

	writeProc(t, root, 42, 200, "new\x00")
	if got := r.Name(42); got != "new" {
		t.Errorf("Name(42) after pid reuse = %q, want new", got)
	}
}

func TestResolver_CachesSameProcessUntilForget(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 100, 7, "first\x00")

	r := newTestResolver(t, root)
	if got := r.Name(100); got != "first" {
		t.Fatalf("Name() = %q", got)
	}

	writeProc(t, root, 100, 7, "second\x00")
	if got := r.Name(100); got != "first" {
		t.Errorf("Name() = %q, want cached value", got)
	}

	r.Forget()
	if r.Len() != 0 {
		t.Errorf("Len() after Forget = %d", r.Len())
	}
	if got := r.Name(100); got != "second" {
		t.Errorf("Name() after Forget = %q, want second", got)
	}
}

func TestResolver_CacheIsBounded(t *testing.T) {
	root := t.TempDir()
	r := newTestResolver(t, root)
	for pid := 1; pid <= 3; pid++ {
		writeProc(t, root, pid, 1, "p\x00")
	}
	r.Name(1)

	// Simulate a full cache.
	r.mu.Lock()
	for i := 0; i < maxCached; i++ {
		r.cache[100000+i] = cachedName{}
	}
	r.mu.Unlock()

	r.Name(2)
	if n := r.Len(); n != 1 {
		t.Errorf("Len() = %d after overflow, want 1", n)
	}
}

func TestNewResolver_MissingRoot(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("NewResolver() of a missing root succeeded")
	}
}
