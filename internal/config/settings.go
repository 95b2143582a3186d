package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/track-converter/internal/model"
)

// SetConfig describes one descriptor set (one release variant).
type SetConfig struct {
	// Name identifies the set; used as {set} in path templates.
	Name string `json:"name"`

	// Descriptor is the JSON file name, relative to MetadataDir.
	Descriptor string `json:"descriptor"`

	// SourceDir is where the set's source audio lives, relative to BaseDir.
	SourceDir string `json:"source_dir"`

	// SourceExtension is appended to descriptor keys that have no extension.
	SourceExtension string `json:"source_extension"`

	// ProbeDir optionally overrides where durations are probed from when
	// the source files report broken lengths.
	ProbeDir string `json:"probe_dir,omitempty"`
}

// Settings holds all configuration options.
type Settings struct {
	// Paths
	BaseDir     string      `json:"base_dir"`
	MetadataDir string      `json:"metadata_dir"`
	OutputDir   string      `json:"output_dir"`
	Sets        []SetConfig `json:"sets"`

	// Conversion
	DefaultFormats    []string `json:"default_formats"`
	Overwrite         bool     `json:"overwrite"`
	StopOnError       bool     `json:"stop_on_error"`
	DryRun            bool     `json:"dry_run"`
	MaxConcurrentSets int      `json:"max_concurrent_sets"`
	TranscodeTimeout  float64  `json:"transcode_timeout"` // seconds, 0 disables
	FFmpegPath        string   `json:"ffmpeg_path"`
	FFprobePath       string   `json:"ffprobe_path"`
	Verbose           bool     `json:"verbose"`

	// Encoder quality
	MP3Quality      int    `json:"mp3_quality"` // libmp3lame VBR, 0 best .. 9 worst
	OggQuality      int    `json:"ogg_quality"` // libvorbis, -1 .. 10
	OpusBitrate     string `json:"opus_bitrate"`
	AACBitrate      string `json:"aac_bitrate"`
	FLACCompression int    `json:"flac_compression"` // 0 .. 12

	// Looping and fade out
	LoopEnabled  bool    `json:"loop_enabled"`
	LoopCount    int     `json:"loop_count"`
	FadeDelay    float64 `json:"fade_delay"`
	FadeDuration float64 `json:"fade_duration"`

	// Organya renderer: argv writing 44.1 kHz stereo s16le PCM to stdout.
	// {file} is the song path, {loops} the repeat count to render.
	OrgRenderer []string `json:"org_renderer"`

	// File naming
	SetDirFormat   string `json:"set_dir_format"`
	FileNameFormat string `json:"file_name_format"`

	// Cover art settings
	CoverArt             string `json:"cover_art"` // file path or http(s) URL
	CoverArtResize       bool   `json:"cover_art_resize"`
	CoverArtMaxSize      int    `json:"cover_art_max_size"`
	ConvertCoverArtToJPG bool   `json:"convert_cover_art_to_jpg"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	// Tag settings
	ModifyTags bool `json:"modify_tags"`
	VerifyTags bool `json:"verify_tags"`
}

// DefaultSets returns the three release variants the converter processes
// when no sets are configured.
func DefaultSets() []SetConfig {
	return []SetConfig{
		{Name: "1-original", Descriptor: "1-original.json", SourceDir: filepath.Join("source", "1-original"), SourceExtension: ".org"},
		{Name: "2-new", Descriptor: "2-new.json", SourceDir: filepath.Join("source", "2-new"), SourceExtension: ".ogg"},
		{Name: "3-remastered", Descriptor: "3-remastered.json", SourceDir: filepath.Join("source", "3-remastered"), SourceExtension: ".ogg"},
	}
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		BaseDir:     ".",
		MetadataDir: "metadata",
		OutputDir:   "output",
		Sets:        DefaultSets(),

		DefaultFormats:    []string{"flac"},
		Overwrite:         false,
		StopOnError:       false,
		MaxConcurrentSets: 1,
		TranscodeTimeout:  600,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",

		MP3Quality:      0,
		OggQuality:      6,
		OpusBitrate:     "160k",
		AACBitrate:      "256k",
		FLACCompression: 8,

		LoopEnabled:  false,
		LoopCount:    1,
		FadeDelay:    2,
		FadeDuration: 8,

		OrgRenderer: []string{"organism", "{file}", "{loops}"},

		SetDirFormat:   "{set}",
		FileNameFormat: "{artist} - {title}",

		CoverArtResize:       true,
		CoverArtMaxSize:      1000,
		ConvertCoverArtToJPG: true,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		ModifyTags: true,
		VerifyTags: true,
	}
}

// Load reads settings from a JSON file.
//
// A missing file yields DefaultSettings. When the file does not set
// base_dir, the directory containing the file is used so relative paths in
// it resolve next to the config rather than wherever the process started.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	settings.BaseDir = ""
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if settings.BaseDir == "" {
		settings.BaseDir = filepath.Dir(path)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks settings for values the converter cannot work with.
func (s *Settings) Validate() error {
	var errs []error

	if len(s.Sets) == 0 {
		errs = append(errs, errors.New("no descriptor sets configured"))
	}
	seen := make(map[string]bool, len(s.Sets))
	for i, set := range s.Sets {
		if set.Name == "" {
			errs = append(errs, fmt.Errorf("sets[%d]: name is required", i))
		} else if seen[set.Name] {
			errs = append(errs, fmt.Errorf("sets[%d]: duplicate name %q", i, set.Name))
		}
		seen[set.Name] = true
		if set.Descriptor == "" {
			errs = append(errs, fmt.Errorf("sets[%d]: descriptor is required", i))
		}
	}

	if _, err := s.Formats(); err != nil {
		errs = append(errs, fmt.Errorf("default_formats: %w", err))
	}
	if s.MaxConcurrentSets < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_sets must be >= 1, got %d", s.MaxConcurrentSets))
	}
	if s.TranscodeTimeout < 0 {
		errs = append(errs, fmt.Errorf("transcode_timeout must be >= 0, got %g", s.TranscodeTimeout))
	}
	if s.MP3Quality < 0 || s.MP3Quality > 9 {
		errs = append(errs, fmt.Errorf("mp3_quality must be 0-9, got %d", s.MP3Quality))
	}
	if s.FLACCompression < 0 || s.FLACCompression > 12 {
		errs = append(errs, fmt.Errorf("flac_compression must be 0-12, got %d", s.FLACCompression))
	}
	if s.LoopEnabled {
		if s.LoopCount < 0 {
			errs = append(errs, fmt.Errorf("loop_count must be >= 0, got %d", s.LoopCount))
		}
		if s.FadeDuration <= 0 {
			errs = append(errs, fmt.Errorf("fade_duration must be > 0, got %g", s.FadeDuration))
		}
	}
	if len(s.OrgRenderer) > 0 && s.OrgRenderer[0] == "" {
		errs = append(errs, errors.New("org_renderer: command is empty"))
	}
	switch s.PlaylistFormat {
	case "m3u", "pls", "wpl", "zpl":
	default:
		errs = append(errs, fmt.Errorf("playlist_format must be m3u, pls, wpl or zpl, got %q", s.PlaylistFormat))
	}

	return errors.Join(errs...)
}

// Formats returns the parsed default target formats.
func (s *Settings) Formats() ([]model.Format, error) {
	formats, err := model.ParseFormats(s.DefaultFormats)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, errors.New("at least one format is required")
	}
	return formats, nil
}

// Timeout returns the per-invocation transcoder timeout; zero means none.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TranscodeTimeout * float64(time.Second))
}

// Resolve returns p joined to BaseDir unless p is absolute or empty.
func (s *Settings) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.BaseDir, p)
}

// DescriptorPath returns the resolved path of a set's descriptor file.
func (s *Settings) DescriptorPath(set SetConfig) string {
	return filepath.Join(s.Resolve(s.MetadataDir), set.Descriptor)
}

// Overrides are command-line values applied over a loaded config. Empty
// fields leave the config untouched.
type Overrides struct {
	MetadataDir string
	SourceRoot  string // each set reads <SourceRoot>/<set name>
	OutputDir   string
	Formats     []string
}

// Apply sets the non-empty overrides. Relative paths are made absolute
// against the working directory, as a user typing them would expect,
// rather than resolved later against BaseDir.
func (s *Settings) Apply(o Overrides) error {
	abs := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		return filepath.Abs(p)
	}

	metadataDir, err := abs(o.MetadataDir)
	if err != nil {
		return err
	}
	sourceRoot, err := abs(o.SourceRoot)
	if err != nil {
		return err
	}
	outputDir, err := abs(o.OutputDir)
	if err != nil {
		return err
	}

	if metadataDir != "" {
		s.MetadataDir = metadataDir
	}
	if sourceRoot != "" {
		for i := range s.Sets {
			s.Sets[i].SourceDir = filepath.Join(sourceRoot, s.Sets[i].Name)
		}
	}
	if outputDir != "" {
		s.OutputDir = outputDir
	}
	if len(o.Formats) > 0 {
		s.DefaultFormats = o.Formats
	}
	return nil
}

// Renderer returns OrgRenderer with a relative command path resolved
// against BaseDir. Bare command names are left for PATH lookup.
func (s *Settings) Renderer() []string {
	if len(s.OrgRenderer) == 0 {
		return nil
	}
	argv := append([]string(nil), s.OrgRenderer...)
	if strings.ContainsAny(argv[0], `/\`) {
		argv[0] = s.Resolve(argv[0])
	}
	return argv
}

// CoverArtIsURL reports whether CoverArt should be fetched over HTTP.
func (s *Settings) CoverArtIsURL() bool {
	return strings.HasPrefix(s.CoverArt, "http://") || strings.HasPrefix(s.CoverArt, "https://")
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	return &model.PathConfig{
		OutputDir:      s.Resolve(s.OutputDir),
		SetDirFormat:   s.SetDirFormat,
		FileNameFormat: s.FileNameFormat,
	}
}
