// ABOUTME: Tests for flag parsing, response-file expansion and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRejectsUnsupportedFPS(t *testing.T) {
	_, err := Parse([]string{"-fps", "film"})
	if err == nil {
		t.Error("expected an error for fps=film")
	}
}

func TestParseAcceptsPAL(t *testing.T) {
	cfg, err := Parse([]string{"-fps", "pal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Rate.FPS != 25 {
		t.Errorf("Rate.FPS = %d, want 25", cfg.Rate.FPS)
	}
}

func TestParseMapEntries(t *testing.T) {
	cfg, err := Parse([]string{"-map", "10:500", "-map", "11:18", "-offset", "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Begin.IDMap[10] != 500 {
		t.Errorf("IDMap[10] = %d, want 500", cfg.Begin.IDMap[10])
	}
	if cfg.Begin.Offset != 7 {
		t.Errorf("Offset = %d, want 7", cfg.Begin.Offset)
	}
}

func TestParseRejectsMalformedMapEntry(t *testing.T) {
	_, err := Parse([]string{"-map", "not-a-pair"})
	if err == nil {
		t.Error("expected an error for a malformed -map entry")
	}
}

func TestExpandResponseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "args.txt")
	if err := os.WriteFile(path, []byte("-fps pal\n-offset 3"), 0644); err != nil {
		t.Fatalf("write response file: %v", err)
	}

	cfg, err := Parse([]string{"@" + path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Begin.Offset != 3 {
		t.Errorf("Offset = %d, want 3", cfg.Begin.Offset)
	}
}

func TestParseRejectsChannelOutOfRange(t *testing.T) {
	_, err := Parse([]string{"-begin-channel", "17"})
	if err == nil {
		t.Error("expected an error for begin-channel=17")
	}
}
