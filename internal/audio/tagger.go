package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/track-converter/internal/io"
	"github.com/handiism/track-converter/internal/model"
)

// TagConfig holds tagging configuration.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags:   true, // write descriptor fields
//	    EmbedArtwork: true, // attach cover art when given
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text tags are written.
	ModifyTags bool

	// EmbedArtwork controls whether cover art bytes are attached.
	EmbedArtwork bool

	// CommentLanguage is the ISO-639-2 code used for ID3 COMM frames.
	CommentLanguage string
}

// DefaultTagConfig returns the default tag configuration.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:      true,
		EmbedArtwork:    true,
		CommentLanguage: "eng",
	}
}

// Remuxer rewrites a file's container metadata without re-encoding. It is
// used for formats that have no native tag writer.
type Remuxer interface {
	Remux(ctx context.Context, input, output string, format model.Format, fields model.Fields) error
}

// Tagger writes tag fields and cover art into converted files.
//
// The container is chosen by file extension:
//   - .mp3  ID3v2.4 frames
//   - .flac Vorbis comments and a PICTURE block
//   - anything else, WAV included, is remuxed through the Remuxer; ffmpeg
//     writes WAV tags as a padded RIFF LIST/INFO chunk
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig(), transcode.NewFFmpeg(opts))
//	err := tagger.Tag(ctx, "/out/.staging.flac", track.Fields(), artwork)
type Tagger struct {
	config  *TagConfig
	remuxer Remuxer
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used. remuxer may be nil, in which
// case formats without a native writer fail with a TaggingError.
func NewTagger(config *TagConfig, remuxer Remuxer) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config, remuxer: remuxer}
}

// Tag writes fields and artwork into the file at path, replacing whatever
// tags it had. artwork may be nil.
//
// Returns a *TaggingError on failure.
func (t *Tagger) Tag(ctx context.Context, path string, fields model.Fields, artwork []byte) error {
	if !t.config.ModifyTags {
		fields = nil
	}
	if !t.config.EmbedArtwork {
		artwork = nil
	}
	if len(fields) == 0 && artwork == nil {
		return nil
	}

	format, err := formatOf(path)
	if err != nil {
		return &TaggingError{Path: path, Op: "write", Err: err}
	}

	switch format {
	case model.FormatMP3:
		err = t.tagMP3(path, fields, artwork)
	case model.FormatFLAC:
		err = tagFLAC(path, fields, artwork)
	default:
		err = t.remux(ctx, path, format, fields)
	}
	if err != nil {
		return &TaggingError{Path: path, Format: format, Op: "write", Err: err}
	}
	return nil
}

// remux hands the file to the Remuxer with fields as container metadata and
// swaps the result in place of the original.
func (t *Tagger) remux(ctx context.Context, path string, format model.Format, fields model.Fields) error {
	if t.remuxer == nil {
		return fmt.Errorf("no tag writer for %s", format)
	}
	if fields == nil {
		return nil
	}

	tmp := ioutils.StagingPath(path)
	if err := t.remuxer.Remux(ctx, path, tmp, format, fields); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// formatOf derives the container format from the file extension.
func formatOf(path string) (model.Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New("file has no extension")
	}
	return model.ParseFormat(ext)
}

// TaggingError reports a failure to write or read back tags.
type TaggingError struct {
	Path   string
	Format model.Format

	// Op is "write" or "verify".
	Op string

	Err error
}

func (e *TaggingError) Error() string {
	return fmt.Sprintf("tag %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TaggingError) Unwrap() error {
	return e.Err
}
