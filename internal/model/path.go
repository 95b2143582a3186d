package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ioutils "github.com/handiism/track-converter/internal/io"
)

// PathConfig holds path formatting settings for converted files.
//
// Both format fields support placeholders that are replaced with track values:
//   - {artist}, {album}, {albumartist}, {title}
//   - {tracknum} - Track number (2 digits, zero-padded)
//   - {disc} - Disc number
//   - {year} - First four digits of the date
//   - {set} - MetadataSet name
//   - {format} - Target format name ("flac", "mp3", ...)
//
// Example configuration:
//
//	cfg := &PathConfig{
//	    OutputDir:      "/home/user/Music/converted",
//	    SetDirFormat:   "{set}/{format}",
//	    FileNameFormat: "{tracknum} {artist} - {title}",
//	}
type PathConfig struct {
	// OutputDir is the root directory for all converted files.
	OutputDir string

	// SetDirFormat is the directory template below OutputDir.
	// Example: "{set}" or "{set}/{format}"
	SetDirFormat string

	// FileNameFormat is the filename template without extension.
	// Example: "{artist} - {title}"
	FileNameFormat string
}

// DestPath computes the destination file path for a track in the given
// format. The result depends only on its arguments.
func (c *PathConfig) DestPath(set string, t *Track, f Format) string {
	dir := c.DestDir(set, t, f)
	fileName := c.parseFileName(set, t, f)
	ext := f.Extension()
	filePath := filepath.Join(dir, fileName+ext)

	// Limit total path length for Windows compatibility (MAX_PATH = 260)
	if len(filePath) >= 260 {
		maxLen := 259 - len(dir) - 1 - len(ext)
		if maxLen > 0 && maxLen < len(fileName) {
			filePath = filepath.Join(dir, ioutils.SanitizeFileName(truncate(fileName, maxLen))+ext)
		}
	}

	return filePath
}

// DestDir computes the directory a track's outputs are written to.
func (c *PathConfig) DestDir(set string, t *Track, f Format) string {
	dir := filepath.Join(c.OutputDir, c.expandDir(c.SetDirFormat, set, t, f))
	if t.Output != "" {
		dir = filepath.Join(dir, c.expandDir(t.Output, set, t, f))
	}

	// Limit path length for cross-platform compatibility (Windows MAX_PATH)
	if len(dir) >= 248 {
		dir = truncate(dir, 247)
	}

	return dir
}

// SetDir returns the set-level directory for a format, ignoring any
// per-track output subdirectory. Track placeholders expand to nothing.
func (c *PathConfig) SetDir(set string, f Format) string {
	return filepath.Join(c.OutputDir, c.expandDir(c.SetDirFormat, set, &Track{}, f))
}

// expandDir substitutes placeholders in each path element separately so a
// value containing a slash cannot introduce extra directories.
func (c *PathConfig) expandDir(format, set string, t *Track, f Format) string {
	if format == "" {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(format), "/")
	for i, part := range parts {
		parts[i] = replacePlaceholders(part, set, t, f, ioutils.SanitizeFileName)
	}
	return filepath.Join(parts...)
}

// parseFileName computes the filename from the config template.
func (c *PathConfig) parseFileName(set string, t *Track, f Format) string {
	format := c.FileNameFormat
	if format == "" {
		format = "{artist} - {title}"
	}
	return ioutils.SanitizeFileName(replacePlaceholders(format, set, t, f, nil))
}

func replacePlaceholders(s, set string, t *Track, f Format, clean func(string) string) string {
	if clean == nil {
		clean = func(v string) string { return v }
	}
	tracknum := ""
	if t.TrackNumber > 0 {
		tracknum = fmt.Sprintf("%02d", t.TrackNumber)
	}
	disc := ""
	if t.DiscNumber > 0 {
		disc = fmt.Sprintf("%d", t.DiscNumber)
	}
	albumArtist := t.AlbumArtist
	if albumArtist == "" {
		albumArtist = t.Artist
	}

	r := strings.NewReplacer(
		"{artist}", clean(t.Artist),
		"{albumartist}", clean(albumArtist),
		"{album}", clean(t.Album),
		"{title}", clean(t.Title),
		"{tracknum}", tracknum,
		"{disc}", disc,
		"{year}", t.Year(),
		"{set}", clean(set),
		"{format}", string(f),
	)
	return strings.TrimSpace(r.Replace(s))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
