package model

import (
	"fmt"
	"strings"
)

// Format is an output audio container the converter can produce.
type Format string

const (
	FormatFLAC Format = "flac"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatAIFF Format = "aiff"
	FormatOGG  Format = "ogg"
	FormatOpus Format = "opus"
	FormatM4A  Format = "m4a"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatFLAC, FormatMP3, FormatWAV, FormatAIFF, FormatOGG, FormatOpus, FormatM4A}

// ParseFormat converts a user supplied name such as "FLAC", ".mp3" or "aif"
// into a Format.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch name {
	case "aif":
		return FormatAIFF, nil
	case "oga":
		return FormatOGG, nil
	case "aac", "mp4":
		return FormatM4A, nil
	}
	for _, f := range Formats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ParseFormats parses a list of format names, dropping duplicates while
// keeping the first occurrence order.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Lossless reports whether the format stores audio without lossy encoding.
func (f Format) Lossless() bool {
	switch f {
	case FormatFLAC, FormatWAV, FormatAIFF:
		return true
	}
	return false
}
