package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	dir := t.TempDir()

	if err := ValidatePathWithinDirectory(filepath.Join(dir, "runs.db"), dir); err != nil {
		t.Errorf("path inside directory rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "sub", "deep", "chart.html"), dir); err != nil {
		t.Errorf("nonexistent nested path inside directory rejected: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(dir, "..", "escape.db"), dir); err == nil {
		t.Error("dot-dot escape accepted")
	}
	if err := ValidatePathWithinDirectory("/etc/passwd", dir); err == nil {
		t.Error("absolute outside path accepted")
	}
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "out.db"), dir); err == nil {
		t.Error("symlink escape accepted")
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(os.TempDir(), "track-sim.db")); err != nil {
		t.Errorf("temp dir path rejected: %v", err)
	}
	if err := ValidateOutputPath("track-sim.db"); err != nil {
		t.Errorf("working directory path rejected: %v", err)
	}
	if err := ValidateOutputPath("/proc/self/out.db"); err == nil {
		t.Error("path outside allowed roots accepted")
	}
}
