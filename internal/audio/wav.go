package audio

import (
	"errors"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// readWAVInfo returns the INFO title and artist of a WAV file. A file
// without a LIST/INFO chunk yields empty strings.
func readWAVInfo(path string) (title, artist string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadMetadata()
	if err := dec.Err(); err != nil && !errors.Is(err, io.EOF) {
		return "", "", err
	}
	if dec.Metadata == nil {
		return "", "", nil
	}
	return dec.Metadata.Title, dec.Metadata.Artist, nil
}
