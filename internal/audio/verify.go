package audio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
	"github.com/handiism/track-converter/internal/model"
)

// ErrTagMismatch is wrapped by Verify when a read-back value differs.
var ErrTagMismatch = errors.New("tag mismatch")

// Verify reads the tags of path back and checks that title and artist match
// fields. Formats without a reader (AIFF) are accepted as is.
//
// Returns a *TaggingError wrapping ErrTagMismatch on a difference.
func (t *Tagger) Verify(path string, fields model.Fields) error {
	if !t.config.ModifyTags || len(fields) == 0 {
		return nil
	}

	format, err := formatOf(path)
	if err != nil {
		return &TaggingError{Path: path, Op: "verify", Err: err}
	}

	var title, artist string
	switch format {
	case model.FormatAIFF:
		return nil
	case model.FormatWAV:
		title, artist, err = readWAVInfo(path)
	default:
		title, artist, err = readTags(path)
	}
	if err != nil {
		return &TaggingError{Path: path, Format: format, Op: "verify", Err: err}
	}

	if err := compare(model.FieldTitle, fields[model.FieldTitle], title); err != nil {
		return &TaggingError{Path: path, Format: format, Op: "verify", Err: err}
	}
	if err := compare(model.FieldArtist, fields[model.FieldArtist], artist); err != nil {
		return &TaggingError{Path: path, Format: format, Op: "verify", Err: err}
	}
	return nil
}

func readTags(path string) (title, artist string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", err
	}
	return m.Title(), m.Artist(), nil
}

func compare(field, want, got string) error {
	if want == "" || strings.TrimSpace(got) == want {
		return nil
	}
	return fmt.Errorf("%w: %s is %q, want %q", ErrTagMismatch, field, got, want)
}
