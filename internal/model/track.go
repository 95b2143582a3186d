package model

import (
	"sort"
	"strconv"
)

// Track is one descriptor record.
//
// Track carries everything needed to produce the converted files:
//   - Source (and optional Loop) file names, relative to the set's source dir
//   - Tag values written into every output
//   - Formats to produce
//   - Output, an optional subdirectory below the set directory
//
// Extra holds any additional string-valued keys found in the descriptor;
// they are written as tags verbatim.
//
// Example:
//
//	track := &Track{
//	    Source:  "track01.ogg",
//	    Title:   "Intro",
//	    Artist:  "Band",
//	    Formats: []Format{FormatFLAC, FormatMP3},
//	}
//	// produces "Band - Intro.flac" and "Band - Intro.mp3"
type Track struct {
	// Source is the source audio file name.
	Source string

	// Loop is the loop half of an intro/loop pair. Empty for single files.
	Loop string

	Title       string
	Artist      string
	Album       string
	AlbumArtist string

	// TrackNumber is the 1-indexed position; 0 means unset.
	TrackNumber int

	// TrackTotal is the number of tracks on the release; 0 means unset.
	TrackTotal int

	// DiscNumber is the disc position; 0 means unset.
	DiscNumber int

	// Date is the release date as written in the descriptor ("2004" or "2004-12-20").
	Date string

	Genre   string
	Comment string

	// Formats are the targets to produce. Empty means the set defaults apply.
	Formats []Format

	// Output is an optional subdirectory below the set directory.
	Output string

	// Extra contains descriptor keys without a dedicated field.
	Extra map[string]string
}

// Year returns the four digit year from Date, or "" when Date does not
// start with one.
func (t *Track) Year() string {
	if len(t.Date) < 4 {
		return ""
	}
	if _, err := strconv.Atoi(t.Date[:4]); err != nil {
		return ""
	}
	return t.Date[:4]
}

// HasLoop reports whether the track is an intro/loop pair.
func (t *Track) HasLoop() bool {
	return t.Loop != ""
}

// Fields returns the tag fields for this track. Empty values are omitted.
func (t *Track) Fields() Fields {
	f := make(Fields, 10+len(t.Extra))
	for k, v := range t.Extra {
		if v != "" {
			f[k] = v
		}
	}
	f.set(FieldTitle, t.Title)
	f.set(FieldArtist, t.Artist)
	f.set(FieldAlbum, t.Album)
	f.set(FieldAlbumArtist, t.AlbumArtist)
	f.set(FieldDate, t.Date)
	f.set(FieldGenre, t.Genre)
	f.set(FieldComment, t.Comment)
	if t.TrackNumber > 0 {
		f[FieldTrack] = strconv.Itoa(t.TrackNumber)
		if t.TrackTotal > 0 {
			f[FieldTrack] += "/" + strconv.Itoa(t.TrackTotal)
		}
	}
	if t.DiscNumber > 0 {
		f[FieldDisc] = strconv.Itoa(t.DiscNumber)
	}
	return f
}

// Well-known tag field names. They follow ffmpeg's metadata keys so a Fields
// map can be handed to the transcoder unchanged.
const (
	FieldTitle       = "title"
	FieldArtist      = "artist"
	FieldAlbum       = "album"
	FieldAlbumArtist = "album_artist"
	FieldTrack       = "track"
	FieldDisc        = "disc"
	FieldDate        = "date"
	FieldGenre       = "genre"
	FieldComment     = "comment"
)

// Fields maps tag field names to values.
type Fields map[string]string

func (f Fields) set(key, value string) {
	if value == "" {
		return
	}
	f[key] = value
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
