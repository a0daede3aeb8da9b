package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	if cfg.Audio != want.Audio || cfg.Exercise != want.Exercise || cfg.Sync != want.Sync {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Audio.Tempo = 132
	cfg.Audio.Metronome = false
	cfg.Exercise.Root = "F#"
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Audio.Tempo != 132 || got.Audio.Metronome || got.Exercise.Root != "F#" {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"audio":{"tempo":100}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Tempo != 100 {
		t.Errorf("Tempo = %d, want 100", cfg.Audio.Tempo)
	}
	if cfg.Exercise.Pattern != "root-fifth-octave" || cfg.Sync.Listen == "" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed JSON")
	}
}
