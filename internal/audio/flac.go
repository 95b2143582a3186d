package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
	ioutils "github.com/handiism/track-converter/internal/io"
	"github.com/handiism/track-converter/internal/model"
)

// vorbisKeys maps well-known fields to Vorbis comment names. The track field
// is split into TRACKNUMBER and TRACKTOTAL.
var vorbisKeys = map[string]string{
	model.FieldTitle:       flacvorbis.FIELD_TITLE,
	model.FieldArtist:      flacvorbis.FIELD_ARTIST,
	model.FieldAlbum:       flacvorbis.FIELD_ALBUM,
	model.FieldAlbumArtist: "ALBUMARTIST",
	model.FieldDisc:        "DISCNUMBER",
	model.FieldDate:        flacvorbis.FIELD_DATE,
	model.FieldGenre:       flacvorbis.FIELD_GENRE,
	model.FieldComment:     "COMMENT",
}

// tagFLAC replaces the VORBIS_COMMENT block and, when artwork is given, the
// PICTURE blocks of a FLAC file.
func tagFLAC(path string, fields model.Fields, artwork []byte) error {
	f, err := parseFLAC(path)
	if err != nil {
		return err
	}

	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+2)
	for _, block := range f.Meta {
		switch {
		case block.Type == flac.VorbisComment && fields != nil:
			continue
		case block.Type == flac.Picture && artwork != nil:
			continue
		case block.Type == flac.Padding:
			continue
		}
		meta = append(meta, block)
	}

	if fields != nil {
		cmt, err := vorbisComment(fields)
		if err != nil {
			return err
		}
		block := cmt.Marshal()
		meta = append(meta, &block)
	}

	if artwork != nil {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", artwork, imageMIME(artwork))
		if err != nil {
			return err
		}
		block := pic.Marshal()
		meta = append(meta, &block)
	}

	f.Meta = meta
	return ioutils.WriteFile(context.Background(), path, f.Marshal())
}

// errNoFrames is returned for a FLAC stream that ends after its metadata.
var errNoFrames = errors.New("flac stream has no audio frames")

// parseFLAC parses the file at path. The parser indexes into the frame data
// without a length check, so a stream with metadata only is rejected here
// instead of panicking.
func parseFLAC(path string) (f *flac.File, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !hasFrames(data) {
		return nil, errNoFrames
	}

	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("%w: %v", errNoFrames, r)
		}
	}()
	return flac.ParseBytes(bytes.NewReader(data))
}

// hasFrames walks the metadata block headers and reports whether at least
// a frame sync code follows them.
func hasFrames(data []byte) bool {
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		// Let the parser report the bad magic.
		return true
	}
	pos := 4
	for {
		if pos+4 > len(data) {
			return false
		}
		last := data[pos]&0x80 != 0
		size := int(data[pos+1])<<16 | int(data[pos+2])<<8 | int(data[pos+3])
		pos += 4 + size
		if last {
			return pos+2 <= len(data)
		}
	}
}

func vorbisComment(fields model.Fields) (*flacvorbis.MetaDataBlockVorbisComment, error) {
	cmt := flacvorbis.New()
	for _, key := range fields.Keys() {
		value := fields[key]
		if key == model.FieldTrack {
			num, total, hasTotal := strings.Cut(value, "/")
			if err := cmt.Add(flacvorbis.FIELD_TRACKNUMBER, num); err != nil {
				return nil, err
			}
			if hasTotal {
				if err := cmt.Add("TRACKTOTAL", total); err != nil {
					return nil, err
				}
			}
			continue
		}
		name, ok := vorbisKeys[key]
		if !ok {
			name = strings.ToUpper(key)
		}
		if err := cmt.Add(name, value); err != nil {
			return nil, err
		}
	}
	return cmt, nil
}

func imageMIME(data []byte) string {
	return ioutils.DetectImageType(data)
}
