package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.WallClockLimit.Duration != 300*time.Second {
		t.Fatalf("expected 300s, got %v", p.WallClockLimit.Duration)
	}
	if p.Workers != 8 {
		t.Fatalf("expected 8 workers, got %d", p.Workers)
	}
}

func TestProductionProfile(t *testing.T) {
	p := ProductionProfile()
	if p.WallClockLimit.Duration != 1800*time.Second {
		t.Fatalf("expected 1800s, got %v", p.WallClockLimit.Duration)
	}
}

func TestNamedUnknown(t *testing.T) {
	if _, err := Named("bogus"); err == nil {
		t.Fatalf("expected error for unknown profile name")
	}
}

func TestLoadOverridesBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	contents := "workers = 4\ndebug = true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	p, err := Load(path, DefaultProfile())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Workers != 4 || !p.Debug {
		t.Fatalf("expected overridden workers=4 debug=true, got %+v", p)
	}
	if p.WallClockLimit.Duration != 300*time.Second {
		t.Fatalf("expected base wall clock preserved, got %v", p.WallClockLimit.Duration)
	}
}
