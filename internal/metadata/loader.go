package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/model"
)

// CommonKey is the object-layout key whose fields apply to every record.
const CommonKey = "__common__"

// aliases maps accepted spellings to the canonical field name.
var aliases = map[string]string{
	"file":         "source",
	"albumartist":  "album_artist",
	"album artist": "album_artist",
	"tracknumber":  "track",
	"track_number": "track",
	"track_total":  "tracktotal",
	"totaltracks":  "tracktotal",
	"discnumber":   "disc",
	"disc_number":  "disc",
	"year":         "date",
	"format":       "formats",
	"output_dir":   "output",
}

// canonical lower-cases keys and folds aliases. Two keys naming the same
// field are an error, since either could win.
func canonical(fields map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(fields))
	seen := make(map[string]string, len(fields))
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		name := strings.ToLower(strings.TrimSpace(key))
		if c, ok := aliases[name]; ok {
			name = c
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%q and %q both set %s", prev, key, name)
		}
		seen[name] = key
		out[name] = fields[key]
	}
	return out, nil
}

// Options controls how records are resolved while loading.
type Options struct {
	// Name is stored on the returned set. Defaults to the descriptor's base
	// name without extension.
	Name string

	// SourceDir is stored on the returned set.
	SourceDir string

	// SourceExtension is appended to source names that have no extension.
	SourceExtension string
}

// Load parses the descriptor at path with default options.
func Load(path string) (*model.MetadataSet, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions parses the descriptor at path.
//
// Returns a *ParseError if the file cannot be read, is not a JSON array or
// object, or contains an invalid record.
func LoadWithOptions(path string, opts Options) (*model.MetadataSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	tracks, err := decode(data, opts.SourceExtension)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Path: path, Err: err}
	}

	return &model.MetadataSet{
		Name:           name,
		DescriptorPath: path,
		SourceDir:      opts.SourceDir,
		Tracks:         tracks,
	}, nil
}

// LoadSets loads every set configured in settings, in order. The first
// failure is returned and nothing after it is loaded.
func LoadSets(settings *config.Settings) ([]*model.MetadataSet, error) {
	sets := make([]*model.MetadataSet, 0, len(settings.Sets))
	for _, sc := range settings.Sets {
		set, err := LoadWithOptions(settings.DescriptorPath(sc), Options{
			Name:            sc.Name,
			SourceDir:       settings.Resolve(sc.SourceDir),
			SourceExtension: sc.SourceExtension,
		})
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// decode walks the top-level JSON value with a token stream so object keys
// keep their file order.
func decode(data []byte, defaultExt string) ([]*model.Track, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty descriptor")
		}
		return nil, err
	}

	var tracks []*model.Track
	switch tok {
	case json.Delim('['):
		for i := 0; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			entry := fmt.Sprintf("[%d]", i)
			track, err := parseRecord(raw, nil, "", defaultExt)
			if err != nil {
				return nil, &ParseError{Entry: entry, Err: err}
			}
			tracks = append(tracks, track)
		}

	case json.Delim('{'):
		type keyed struct {
			key string
			raw json.RawMessage
		}
		var records []keyed
		var common json.RawMessage
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			if key == CommonKey {
				common = raw
				continue
			}
			records = append(records, keyed{key: key, raw: raw})
		}

		var commonFields map[string]json.RawMessage
		if common != nil {
			if err := json.Unmarshal(common, &commonFields); err != nil {
				return nil, &ParseError{Entry: CommonKey, Err: err}
			}
			if commonFields, err = canonical(commonFields); err != nil {
				return nil, &ParseError{Entry: CommonKey, Err: err}
			}
		}
		for _, r := range records {
			track, err := parseRecord(r.raw, commonFields, r.key, defaultExt)
			if err != nil {
				return nil, &ParseError{Entry: strconv.Quote(r.key), Err: err}
			}
			tracks = append(tracks, track)
		}

	default:
		return nil, fmt.Errorf("descriptor must be a JSON array or object, got %v", tok)
	}

	// The closing delimiter must be present and nothing may follow it.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}

	return tracks, nil
}

// parseRecord builds a Track from one record, with common fields merged
// underneath and stem used when the record has no source. common must
// already be canonical.
//
// Fields are applied in sorted order, so an explicit tracktotal always
// overrides the total of a "n/total" track value.
func parseRecord(raw json.RawMessage, common map[string]json.RawMessage, stem, defaultExt string) (*model.Track, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("record must be an object: %w", err)
	}
	fields, err := canonical(fields)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(common)+len(fields))
	maps.Copy(merged, common)
	maps.Copy(merged, fields)

	t := &model.Track{}
	loopPair := false
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		value := merged[key]
		var err error
		switch key {
		case "source":
			t.Source, err = scalar(value)
		case "loop":
			var b bool
			if json.Unmarshal(value, &b) == nil {
				loopPair = b
			} else {
				t.Loop, err = scalar(value)
			}
		case "title":
			t.Title, err = scalar(value)
		case "artist":
			t.Artist, err = scalar(value)
		case "album":
			t.Album, err = scalar(value)
		case "album_artist":
			t.AlbumArtist, err = scalar(value)
		case "track":
			var total int
			t.TrackNumber, total, err = position(value)
			if total > 0 {
				t.TrackTotal = total
			}
		case "tracktotal":
			var s string
			if s, err = scalar(value); err == nil && s != "" {
				t.TrackTotal, err = strconv.Atoi(s)
			}
		case "disc":
			t.DiscNumber, _, err = position(value)
		case "date":
			t.Date, err = scalar(value)
		case "genre":
			t.Genre, err = scalar(value)
		case "comment":
			t.Comment, err = scalar(value)
		case "formats":
			t.Formats, err = formats(value)
		case "output":
			t.Output, err = scalar(value)
		default:
			// Extra tag fields: scalars only, nested values are ignored.
			if s, serr := scalar(value); serr == nil && s != "" {
				if t.Extra == nil {
					t.Extra = make(map[string]string)
				}
				t.Extra[key] = s
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	if t.Source == "" {
		t.Source = stem
	}
	if t.Source == "" {
		return nil, errors.New("source is required")
	}
	if filepath.Ext(t.Source) == "" && defaultExt != "" {
		t.Source += defaultExt
	}
	if loopPair && t.Loop == "" {
		ext := filepath.Ext(t.Source)
		base := strings.TrimSuffix(strings.TrimSuffix(t.Source, ext), "_intro")
		t.Source = base + "_intro" + ext
		t.Loop = base + "_loop" + ext
	}
	if t.Loop != "" && filepath.Ext(t.Loop) == "" && defaultExt != "" {
		t.Loop += defaultExt
	}
	if t.Title == "" {
		return nil, errors.New("title is required")
	}

	return t, nil
}

// scalar decodes a string, number, bool or null into its string form.
func scalar(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("expected a string or number, got %s", bytes.TrimSpace(raw))
	}
}

// position parses 3, "3" or "3/12".
func position(raw json.RawMessage) (n, total int, err error) {
	s, err := scalar(raw)
	if err != nil || s == "" {
		return 0, 0, err
	}
	num, tot, hasTotal := strings.Cut(s, "/")
	if n, err = strconv.Atoi(strings.TrimSpace(num)); err != nil {
		return 0, 0, fmt.Errorf("invalid position %q", s)
	}
	if hasTotal {
		if total, err = strconv.Atoi(strings.TrimSpace(tot)); err != nil {
			return 0, 0, fmt.Errorf("invalid position %q", s)
		}
	}
	if n < 0 || total < 0 {
		return 0, 0, fmt.Errorf("invalid position %q", s)
	}
	return n, total, nil
}

// formats accepts ["flac", "mp3"] or a single "flac".
func formats(raw json.RawMessage) ([]model.Format, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, errors.New("expected an array of format names")
		}
		names = []string{single}
	}
	return model.ParseFormats(names)
}
