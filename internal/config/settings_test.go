package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("DefaultSettings().Validate() = %v", err)
	}

	if len(s.Sets) != 3 {
		t.Fatalf("default sets = %d, want 3", len(s.Sets))
	}
	wantNames := []string{"1-original", "2-new", "3-remastered"}
	for i, name := range wantNames {
		if s.Sets[i].Name != name {
			t.Errorf("Sets[%d].Name = %q, want %q", i, s.Sets[i].Name, name)
		}
	}

	if s.MaxConcurrentSets != 1 {
		t.Errorf("MaxConcurrentSets = %d, want 1 (sequential)", s.MaxConcurrentSets)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.MetadataDir != "metadata" {
		t.Errorf("MetadataDir = %q, want default", s.MetadataDir)
	}
}

func TestLoad_BaseDirDefaultsToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"output_dir": "out", "default_formats": ["mp3", "flac"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", s.BaseDir, dir)
	}
	if got := s.ToPathConfig().OutputDir; got != filepath.Join(dir, "out") {
		t.Errorf("OutputDir = %q, want %q", got, filepath.Join(dir, "out"))
	}
	formats, err := s.Formats()
	if err != nil || len(formats) != 2 {
		t.Errorf("Formats() = %v, %v", formats, err)
	}
	// Unset keys keep their defaults.
	if s.PlaylistFormat != "m3u" {
		t.Errorf("PlaylistFormat = %q, want default m3u", s.PlaylistFormat)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"output_dir": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for malformed JSON")
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	s := DefaultSettings()
	s.BaseDir = dir
	s.LoopEnabled = true
	s.LoopCount = 2

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.LoopEnabled || loaded.LoopCount != 2 || loaded.BaseDir != dir {
		t.Errorf("loaded settings differ: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"no sets", func(s *Settings) { s.Sets = nil }, "no descriptor sets"},
		{"duplicate set", func(s *Settings) { s.Sets[1].Name = s.Sets[0].Name }, "duplicate name"},
		{"bad format", func(s *Settings) { s.DefaultFormats = []string{"midi"} }, "default_formats"},
		{"no formats", func(s *Settings) { s.DefaultFormats = nil }, "default_formats"},
		{"zero concurrency", func(s *Settings) { s.MaxConcurrentSets = 0 }, "max_concurrent_sets"},
		{"bad mp3 quality", func(s *Settings) { s.MP3Quality = 12 }, "mp3_quality"},
		{"bad playlist", func(s *Settings) { s.PlaylistFormat = "xspf" }, "playlist_format"},
		{"bad fade", func(s *Settings) { s.LoopEnabled = true; s.FadeDuration = 0 }, "fade_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	s := DefaultSettings()
	s.BaseDir = "/srv/ost"

	if got := s.Resolve("metadata"); got != filepath.Join("/srv/ost", "metadata") {
		t.Errorf("Resolve(relative) = %q", got)
	}
	if got := s.Resolve("/abs/path"); got != "/abs/path" {
		t.Errorf("Resolve(absolute) = %q", got)
	}
	if got := s.DescriptorPath(s.Sets[0]); got != filepath.Join("/srv/ost", "metadata", "1-original.json") {
		t.Errorf("DescriptorPath() = %q", got)
	}
}

func TestTimeout(t *testing.T) {
	s := DefaultSettings()
	s.TranscodeTimeout = 1.5
	if got := s.Timeout(); got != 1500*time.Millisecond {
		t.Errorf("Timeout() = %v, want 1.5s", got)
	}
}

func TestSettings_Renderer(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{"path lookup", []string{"organism", "{file}"}, []string{"organism", "{file}"}},
		{"relative path", []string{"tools/organism", "{file}"}, []string{filepath.Join("/base", "tools/organism"), "{file}"}},
		{"absolute path", []string{"/opt/organism"}, []string{"/opt/organism"}},
		{"unset", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.BaseDir = "/base"
			s.OrgRenderer = tt.argv

			got := s.Renderer()
			if strings.Join(got, " ") != strings.Join(tt.want, " ") || len(got) != len(tt.want) {
				t.Errorf("Renderer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSettings_ApplyOverrides(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	s := DefaultSettings()
	s.BaseDir = filepath.Join(t.TempDir(), "project")
	err = s.Apply(Overrides{
		MetadataDir: "meta",
		SourceRoot:  "src",
		OutputDir:   "/abs/out",
		Formats:     []string{"mp3"},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if want := filepath.Join(wd, "meta"); s.Resolve(s.MetadataDir) != want {
		t.Errorf("metadata dir = %q, want %q", s.Resolve(s.MetadataDir), want)
	}
	if want := filepath.Join(wd, "src", "2-new"); s.Resolve(s.Sets[1].SourceDir) != want {
		t.Errorf("source dir = %q, want %q", s.Resolve(s.Sets[1].SourceDir), want)
	}
	if got := s.ToPathConfig().OutputDir; got != filepath.Clean("/abs/out") {
		t.Errorf("output dir = %q, want /abs/out", got)
	}
	if len(s.DefaultFormats) != 1 || s.DefaultFormats[0] != "mp3" {
		t.Errorf("DefaultFormats = %v, want [mp3]", s.DefaultFormats)
	}
}

func TestSettings_ApplyEmptyKeepsConfig(t *testing.T) {
	s := DefaultSettings()
	if err := s.Apply(Overrides{}); err != nil {
		t.Fatal(err)
	}
	want := DefaultSettings()
	if s.MetadataDir != want.MetadataDir || s.OutputDir != want.OutputDir || s.Sets[0].SourceDir != want.Sets[0].SourceDir {
		t.Errorf("empty overrides changed settings: %+v", s)
	}
}
