package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/handiism/track-converter/internal/audio"
	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/metadata"
	"github.com/handiism/track-converter/internal/model"
	"github.com/handiism/track-converter/internal/transcode"
)

// stubTranscoder writes a marker file instead of running ffmpeg.
type stubTranscoder struct {
	mu      sync.Mutex
	calls   []transcode.Source
	targets []string
	failOn  model.Format
}

func (s *stubTranscoder) Convert(ctx context.Context, src transcode.Source, target string, format model.Format) error {
	s.mu.Lock()
	s.calls = append(s.calls, src)
	s.targets = append(s.targets, target)
	s.mu.Unlock()

	if format == s.failOn {
		// Leave a partial file behind like a crashed encoder would.
		os.WriteFile(target, []byte("partial"), 0644)
		return &transcode.ConversionError{Tool: "ffmpeg", Target: target, ExitCode: 1, Stderr: "Unknown encoder"}
	}
	return os.WriteFile(target, []byte("audio:"+string(format)+"\n"), 0644)
}

// stubTagger appends the fields to the file so tests can read them back.
type stubTagger struct {
	err error
}

func (s *stubTagger) Tag(ctx context.Context, path string, fields model.Fields, artwork []byte) error {
	if s.err != nil {
		return &audio.TaggingError{Path: path, Op: "write", Err: s.err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, key := range fields.Keys() {
		fmt.Fprintf(f, "%s=%s\n", key, fields[key])
	}
	return nil
}

func (s *stubTagger) Verify(path string, fields model.Fields) error {
	return nil
}

type fixture struct {
	dir        string
	settings   *config.Settings
	transcoder *stubTranscoder
	tagger     *stubTagger
	events     []ProgressEvent
}

// newFixture lays out a base directory with one set whose descriptor is
// the given JSON, and creates the named source files.
func newFixture(t *testing.T, descriptor string, sources ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "metadata", "1-original.json"), descriptor)
	for _, name := range sources {
		mustWrite(t, filepath.Join(dir, "source", name), "ogg")
	}

	settings := config.DefaultSettings()
	settings.BaseDir = dir
	settings.Sets = []config.SetConfig{
		{Name: "1-original", Descriptor: "1-original.json", SourceDir: "source", SourceExtension: ".ogg"},
	}

	return &fixture{
		dir:        dir,
		settings:   settings,
		transcoder: &stubTranscoder{},
		tagger:     &stubTagger{},
	}
}

func (f *fixture) converter() *Converter {
	return NewConverterWith(f.settings, f.transcoder, f.tagger, func(e ProgressEvent) {
		f.events = append(f.events, e)
	})
}

func (f *fixture) run(t *testing.T) (*Summary, error) {
	t.Helper()
	c := f.converter()
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return c.Run(context.Background())
}

func (f *fixture) out(parts ...string) string {
	return filepath.Join(append([]string{f.dir, "output", "1-original"}, parts...)...)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		t.Fatal(err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestConverter_FlacAndMP3(t *testing.T) {
	f := newFixture(t,
		`[{"source": "track01.ogg", "title": "Intro", "artist": "Band", "formats": ["flac", "mp3"]}]`,
		"track01.ogg")

	summary, err := f.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"Band - Intro.flac", "Band - Intro.mp3"} {
		data, err := os.ReadFile(f.out(name))
		if err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
		content := string(data)
		if !strings.Contains(content, "title=Intro\n") || !strings.Contains(content, "artist=Band\n") {
			t.Errorf("%s not tagged with entry fields:\n%s", name, content)
		}
	}

	if got := listDir(t, f.out()); len(got) != 2 {
		t.Errorf("output dir = %v, want exactly the two outputs", got)
	}
	totals := summary.Totals()
	if totals.Converted != 2 || totals.Failed != 0 {
		t.Errorf("totals = %s", &totals)
	}
	if f.transcoder.calls[0].Path != filepath.Join(f.dir, "source", "track01.ogg") {
		t.Errorf("source path = %q", f.transcoder.calls[0].Path)
	}
}

func TestConverter_DefaultFormats(t *testing.T) {
	f := newFixture(t, `{"track01": {"title": "Intro", "artist": "Band"}}`, "track01.ogg")
	f.settings.DefaultFormats = []string{"wav"}

	if _, err := f.run(t); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(f.out("Band - Intro.wav")); err != nil {
		t.Errorf("default format output missing: %v", err)
	}
}

func TestConverter_MissingSourceContinues(t *testing.T) {
	f := newFixture(t, `[
		{"source": "gone", "title": "Gone", "artist": "Band", "formats": ["flac", "mp3"]},
		{"source": "track01", "title": "Intro", "artist": "Band", "formats": ["flac"]}
	]`, "track01.ogg")

	summary, err := f.run(t)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	totals := summary.Totals()
	if totals.Converted != 1 || totals.Failed != 1 || totals.Skipped != 1 {
		t.Errorf("totals = %s, want 1 converted, 1 failed, 1 skipped", &totals)
	}

	var fnf *FileNotFoundError
	if len(totals.Errors) != 1 || !errors.As(totals.Errors[0], &fnf) {
		t.Fatalf("errors = %v, want one *FileNotFoundError", totals.Errors)
	}
	if !errors.Is(fnf, fs.ErrNotExist) {
		t.Error("FileNotFoundError should wrap fs.ErrNotExist")
	}
	if len(f.transcoder.calls) != 1 {
		t.Errorf("transcoder called %d times, want 1", len(f.transcoder.calls))
	}

	var sawError bool
	for _, e := range f.events {
		if e.Level == LevelError && strings.Contains(e.Message, "Gone") {
			sawError = true
		}
	}
	if !sawError {
		t.Error("missing source should be reported as an error event")
	}
}

func TestConverter_StopOnError(t *testing.T) {
	f := newFixture(t, `[
		{"source": "gone", "title": "Gone", "artist": "Band"},
		{"source": "track01", "title": "Intro", "artist": "Band"}
	]`, "track01.ogg")
	f.settings.StopOnError = true

	summary, err := f.run(t)
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Run() error = %v, want ErrStopped", err)
	}
	var fnf *FileNotFoundError
	if !errors.As(err, &fnf) {
		t.Error("stop error should carry the failure")
	}
	if len(f.transcoder.calls) != 0 {
		t.Error("nothing should be converted after the stop")
	}
	if totals := summary.Totals(); totals.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", totals.Skipped)
	}
}

func TestConverter_ConversionFailureLeavesNoPartial(t *testing.T) {
	f := newFixture(t,
		`[{"source": "track01", "title": "Intro", "artist": "Band", "formats": ["flac", "mp3"]}]`,
		"track01.ogg")
	f.transcoder.failOn = model.FormatFLAC

	summary, err := f.run(t)
	if err != nil {
		t.Fatal(err)
	}

	var ce *transcode.ConversionError
	totals := summary.Totals()
	if len(totals.Errors) != 1 || !errors.As(totals.Errors[0], &ce) {
		t.Fatalf("errors = %v, want one *ConversionError", totals.Errors)
	}
	if got := listDir(t, f.out()); len(got) != 0 {
		t.Errorf("output dir = %v, want empty", got)
	}
	if len(f.transcoder.calls) != 1 {
		t.Error("mp3 should be skipped once flac failed for the same entry")
	}
}

func TestConverter_TagFailure(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band"}]`, "track01.ogg")
	f.tagger.err = errors.New("read-only container")

	summary, err := f.run(t)
	if err != nil {
		t.Fatal(err)
	}

	var te *audio.TaggingError
	totals := summary.Totals()
	if len(totals.Errors) != 1 || !errors.As(totals.Errors[0], &te) {
		t.Fatalf("errors = %v, want one *TaggingError", totals.Errors)
	}
	if got := listDir(t, f.out()); len(got) != 0 {
		t.Errorf("output dir = %v, want empty", got)
	}
}

// headerOnlyTranscoder writes a FLAC stream that ends after STREAMINFO, as
// ffmpeg does for an empty source.
type headerOnlyTranscoder struct{}

func (headerOnlyTranscoder) Convert(ctx context.Context, src transcode.Source, target string, format model.Format) error {
	data := append([]byte("fLaC"), 0x80, 0x00, 0x00, 34)
	data = append(data, make([]byte, 34)...)
	return os.WriteFile(target, data, 0644)
}

func TestConverter_EmptyFLACFailsEntryOnly(t *testing.T) {
	f := newFixture(t, `[
		{"source": "empty", "title": "Silence", "artist": "Band"},
		{"source": "track01", "title": "Intro", "artist": "Band", "formats": ["ogg"]}
	]`, "empty.ogg", "track01.ogg")

	c := NewConverterWith(f.settings, headerOnlyTranscoder{}, audio.NewTagger(nil, nil), nil)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	summary, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	totals := summary.Totals()
	if totals.Failed != 2 {
		t.Fatalf("totals = %s, want both entries failed without a crash", &totals)
	}
	var te *audio.TaggingError
	if !errors.As(totals.Errors[0], &te) || te.Format != model.FormatFLAC {
		t.Errorf("first error = %v, want flac *TaggingError", totals.Errors[0])
	}
	if got := listDir(t, f.out()); len(got) != 0 {
		t.Errorf("output dir = %v, want empty", got)
	}
}

func TestConverter_ExistingDestination(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band"}]`, "track01.ogg")
	mustWrite(t, f.out("Band - Intro.flac"), "old")

	summary, err := f.run(t)
	if err != nil {
		t.Fatal(err)
	}
	if totals := summary.Totals(); totals.Skipped != 1 || totals.Converted != 0 {
		t.Errorf("totals = %s, want 1 skipped", &totals)
	}
	data, _ := os.ReadFile(f.out("Band - Intro.flac"))
	if string(data) != "old" {
		t.Error("existing destination must not be replaced without overwrite")
	}

	f.settings.Overwrite = true
	if _, err := f.run(t); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(f.out("Band - Intro.flac"))
	if !strings.HasPrefix(string(data), "audio:flac") {
		t.Errorf("overwrite should replace destination, got %q", data)
	}
}

func TestConverter_DryRun(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band", "formats": ["flac", "mp3"]}]`, "track01.ogg")
	f.settings.DryRun = true

	summary, err := f.run(t)
	if err != nil {
		t.Fatal(err)
	}
	if totals := summary.Totals(); totals.Planned != 2 {
		t.Errorf("planned = %d, want 2", totals.Planned)
	}
	if len(f.transcoder.calls) != 0 {
		t.Error("dry run must not transcode")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "output")); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
}

func TestConverter_ParseErrorIsFatal(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro"`, "track01.ogg")

	err := f.converter().Initialize(context.Background())
	var pe *metadata.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Initialize() error = %v, want *metadata.ParseError", err)
	}
	if len(f.transcoder.calls) != 0 {
		t.Error("no conversion may start after a parse error")
	}
}

func TestConverter_LoopPair(t *testing.T) {
	f := newFixture(t, `{"boss": {"title": "Boss", "artist": "Band", "loop": true}}`, "boss_intro.ogg", "boss_loop.ogg")

	if _, err := f.run(t); err != nil {
		t.Fatal(err)
	}
	if len(f.transcoder.calls) != 1 {
		t.Fatalf("transcoder calls = %d, want 1", len(f.transcoder.calls))
	}
	src := f.transcoder.calls[0]
	if filepath.Base(src.Path) != "boss_intro.ogg" || filepath.Base(src.Loop) != "boss_loop.ogg" {
		t.Errorf("source = %+v, want intro/loop pair", src)
	}
}

func TestConverter_ProbeDir(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band"}]`, "track01.ogg")
	f.settings.Sets[0].ProbeDir = "probe"

	if _, err := f.run(t); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(f.dir, "probe", "track01.ogg")
	if got := f.transcoder.calls[0].ProbePath; got != want {
		t.Errorf("ProbePath = %q, want %q", got, want)
	}
}

func TestConverter_DuplicateDestination(t *testing.T) {
	f := newFixture(t, `[
		{"source": "track01", "title": "Intro", "artist": "Band"},
		{"source": "track02", "title": "Intro", "artist": "Band"}
	]`, "track01.ogg", "track02.ogg")

	summary, err := f.run(t)
	if err != nil {
		t.Fatal(err)
	}
	if totals := summary.Totals(); totals.Converted != 1 || totals.Skipped != 1 {
		t.Errorf("totals = %s, want 1 converted, 1 skipped", &totals)
	}
}

func TestConverter_Playlist(t *testing.T) {
	f := newFixture(t, `[
		{"source": "track01", "title": "Intro", "artist": "Band"},
		{"source": "track02", "title": "Outro", "artist": "Band"}
	]`, "track01.ogg", "track02.ogg")
	f.settings.CreatePlaylist = true
	f.settings.M3UExtended = false

	if _, err := f.run(t); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(f.out("1-original-flac.m3u"))
	if err != nil {
		t.Fatalf("playlist missing: %v", err)
	}
	want := "Band - Intro.flac\nBand - Outro.flac\n"
	if string(data) != want {
		t.Errorf("playlist = %q, want %q", data, want)
	}
}

func TestConverter_Cancelled(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band"}]`, "track01.ogg")
	c := f.converter()
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(f.transcoder.calls) != 0 {
		t.Error("cancelled run must not transcode")
	}
	if totals := summary.Totals(); totals.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", totals.Skipped)
	}
}

func TestConverter_Progress(t *testing.T) {
	f := newFixture(t, `[{"source": "track01", "title": "Intro", "artist": "Band", "formats": ["flac", "mp3", "ogg"]}]`, "track01.ogg")
	c := f.converter()
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, total := c.GetProgress(); total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(c.Jobs()) != 3 {
		t.Errorf("Jobs() = %d, want 3", len(c.Jobs()))
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if done, total := c.GetProgress(); done != total {
		t.Errorf("progress = %d/%d after run", done, total)
	}
}
