package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/track-converter/internal/audio"
	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/http"
	ioutils "github.com/handiism/track-converter/internal/io"
	"github.com/handiism/track-converter/internal/metadata"
	"github.com/handiism/track-converter/internal/model"
	"github.com/handiism/track-converter/internal/transcode"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a conversion progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Tagger writes tags into a converted file and reads them back.
type Tagger interface {
	Tag(ctx context.Context, path string, fields model.Fields, artwork []byte) error
	Verify(path string, fields model.Fields) error
}

// DurationProber reads the length of an audio file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// setPlan holds the jobs of one set, grouped by descriptor entry.
type setPlan struct {
	set        *model.MetadataSet
	entries    [][]*model.Job
	duplicates int
}

// Converter coordinates conversion of every configured set.
type Converter struct {
	settings     *config.Settings
	paths        *model.PathConfig
	transcoder   transcode.Transcoder
	tagger       Tagger
	prober       DurationProber
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	httpClient   *http.Client

	runID   string
	plans   []*setPlan
	artwork []byte

	totalJobs int32
	doneJobs  int32

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewConverter creates a Converter backed by ffmpeg and the native taggers.
func NewConverter(settings *config.Settings, onProgress func(ProgressEvent)) *Converter {
	ffmpeg := transcode.NewFFmpeg(transcode.OptionsFromSettings(settings))

	tagCfg := audio.DefaultTagConfig()
	tagCfg.ModifyTags = settings.ModifyTags

	c := NewConverterWith(settings, ffmpeg, audio.NewTagger(tagCfg, ffmpeg), onProgress)
	c.prober = ffmpeg.Prober()
	return c
}

// NewConverterWith creates a Converter with the given transcoder and tagger.
func NewConverterWith(settings *config.Settings, transcoder transcode.Transcoder, tagger Tagger, onProgress func(ProgressEvent)) *Converter {
	playlistFormat, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
	if err != nil {
		playlistFormat = audio.FormatM3U
	}

	return &Converter{
		settings:     settings,
		paths:        settings.ToPathConfig(),
		transcoder:   transcoder,
		tagger:       tagger,
		playlist:     audio.NewPlaylistCreator(playlistFormat, settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		httpClient:   http.NewClient(),
		runID:        uuid.NewString(),
		onProgress:   onProgress,
	}
}

// SetProber sets the prober used for playlist durations. nil disables them.
func (c *Converter) SetProber(p DurationProber) {
	c.prober = p
}

// Initialize loads every configured descriptor and plans the jobs.
//
// A *metadata.ParseError from any descriptor is returned before anything
// is converted.
func (c *Converter) Initialize(ctx context.Context) error {
	sets, err := metadata.LoadSets(c.settings)
	if err != nil {
		return err
	}
	for _, set := range sets {
		c.progress(ProgressEvent{Message: fmt.Sprintf("Loaded %s: %d entries from %s", set.Name, set.Len(), set.DescriptorPath), Level: LevelVerbose})
	}
	return c.InitializeSets(ctx, sets)
}

// InitializeSets plans the jobs for already loaded sets and prepares cover
// art.
func (c *Converter) InitializeSets(ctx context.Context, sets []*model.MetadataSet) error {
	defaults, err := c.settings.Formats()
	if err != nil {
		return err
	}

	c.plans = c.plan(sets, defaults)

	if c.settings.CoverArt != "" {
		artwork, err := c.loadArtwork(ctx)
		if err != nil {
			c.progress(ProgressEvent{Message: fmt.Sprintf("Error loading cover art %s: %v", c.settings.CoverArt, err), Level: LevelWarning})
		} else {
			c.artwork = artwork
			c.progress(ProgressEvent{Message: fmt.Sprintf("Loaded cover art (%d bytes)", len(artwork)), Level: LevelVerbose})
		}
	}

	return nil
}

// plan expands every entry into one job per target format. A destination
// claimed by an earlier job is not planned twice.
func (c *Converter) plan(sets []*model.MetadataSet, defaults []model.Format) []*setPlan {
	claimed := make(map[string]*model.Job)
	plans := make([]*setPlan, 0, len(sets))

	for _, set := range sets {
		sp := &setPlan{set: set}
		for _, track := range set.Tracks {
			formats := track.Formats
			if len(formats) == 0 {
				formats = defaults
			}

			jobs := make([]*model.Job, 0, len(formats))
			for _, format := range formats {
				job := &model.Job{
					Set:        set.Name,
					Track:      track,
					Format:     format,
					SourcePath: resolve(set.SourceDir, track.Source),
					DestPath:   c.paths.DestPath(set.Name, track, format),
				}
				if track.HasLoop() {
					job.LoopPath = resolve(set.SourceDir, track.Loop)
				}

				if prev, ok := claimed[job.DestPath]; ok {
					c.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %s is already produced by %s", job, job.DestPath, prev), Level: LevelWarning})
					sp.duplicates++
					continue
				}
				claimed[job.DestPath] = job
				jobs = append(jobs, job)
			}
			if len(jobs) > 0 {
				sp.entries = append(sp.entries, jobs)
				c.totalJobs += int32(len(jobs))
			}
		}
		plans = append(plans, sp)
	}

	return plans
}

// Run converts every planned job. Sets run through an errgroup limited by
// max_concurrent_sets; jobs inside a set always run one at a time.
//
// The returned Summary is complete even when an error is returned. The
// error is non-nil only when ctx is cancelled or stop_on_error ended the
// batch; per-entry failures are reported through events and the Summary.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:  c.runID,
		DryRun: c.settings.DryRun,
		Sets:   make([]*SetSummary, len(c.plans)),
	}

	limit := c.settings.MaxConcurrentSets
	if limit < 1 {
		limit = 1
	}

	c.progress(ProgressEvent{Message: fmt.Sprintf("Run %s: %d jobs in %d sets", c.runID, c.totalJobs, len(c.plans)), Level: LevelVerbose})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, sp := range c.plans {
		g.Go(func() error {
			ss, err := c.runSet(gctx, sp)
			summary.Sets[i] = ss
			return err
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	// Sets never started because the group was cancelled.
	for i, sp := range c.plans {
		if summary.Sets[i] == nil {
			summary.Sets[i] = &SetSummary{Name: sp.set.Name, Skipped: sp.jobCount() + sp.duplicates}
		}
	}

	summary.Duration = time.Since(start)
	return summary, err
}

func (c *Converter) runSet(ctx context.Context, sp *setPlan) (*SetSummary, error) {
	ss := &SetSummary{Name: sp.set.Name, Skipped: sp.duplicates}
	entries := make(map[model.Format][]audio.PlaylistEntry)

	c.progress(ProgressEvent{Message: fmt.Sprintf("Converting %s (%d entries)", sp.set.Name, len(sp.entries)), Level: LevelInfo})

	for n, jobs := range sp.entries {
		if err := ctx.Err(); err != nil {
			ss.Skipped += countJobs(sp.entries[n:])
			return ss, err
		}

		for i, job := range jobs {
			outcome, err := c.convertJob(ctx, job)
			atomic.AddInt32(&c.doneJobs, 1)

			if err != nil {
				if ctx.Err() != nil {
					ss.Skipped += len(jobs) - i + countJobs(sp.entries[n+1:])
					return ss, ctx.Err()
				}

				ss.Failed++
				ss.Errors = append(ss.Errors, err)
				c.progress(ProgressEvent{Message: fmt.Sprintf("Error converting %s: %v", job, err), Level: LevelError})

				if rest := len(jobs) - i - 1; rest > 0 {
					ss.Skipped += rest
					atomic.AddInt32(&c.doneJobs, int32(rest))
					c.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %d remaining format(s) of %q", rest, job.Track.Title), Level: LevelWarning})
				}

				if c.settings.StopOnError {
					ss.Skipped += countJobs(sp.entries[n+1:])
					return ss, fmt.Errorf("%w: %w", ErrStopped, err)
				}
				break
			}

			switch outcome {
			case outcomeConverted:
				ss.Converted++
				entries[job.Format] = append(entries[job.Format], c.playlistEntry(ctx, job))
			case outcomeExisting:
				ss.Skipped++
				entries[job.Format] = append(entries[job.Format], c.playlistEntry(ctx, job))
			case outcomePlanned:
				ss.Planned++
			}
		}
	}

	if c.settings.CreatePlaylist && !c.settings.DryRun {
		c.writePlaylists(ctx, sp.set, entries)
	}

	level := LevelSuccess
	if ss.Failed > 0 {
		level = LevelWarning
	}
	c.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s: %s", sp.set.Name, ss), Level: level})

	return ss, nil
}

type outcome int

const (
	outcomeConverted outcome = iota
	outcomeExisting
	outcomePlanned
)

// convertJob produces one destination file: transcode into a staging file
// beside the destination, tag it, then rename it into place. The staging
// file is removed on any failure.
func (c *Converter) convertJob(ctx context.Context, job *model.Job) (outcome, error) {
	if !c.settings.Overwrite && ioutils.FileExists(job.DestPath) {
		c.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", job.DestPath), Level: LevelWarning})
		return outcomeExisting, nil
	}

	if err := ioutils.RequireFile(job.SourcePath); err != nil {
		return 0, &FileNotFoundError{Set: job.Set, Entry: job.Track.Title, Path: job.SourcePath, Err: err}
	}
	if job.LoopPath != "" {
		if err := ioutils.RequireFile(job.LoopPath); err != nil {
			return 0, &FileNotFoundError{Set: job.Set, Entry: job.Track.Title, Path: job.LoopPath, Err: err}
		}
	}

	if c.settings.DryRun {
		c.progress(ProgressEvent{Message: fmt.Sprintf("Would convert %s -> %s", job.SourcePath, job.DestPath), Level: LevelInfo})
		return outcomePlanned, nil
	}

	if err := ioutils.EnsureDir(filepath.Dir(job.DestPath)); err != nil {
		return 0, err
	}

	staging := ioutils.StagingPath(job.DestPath)
	c.progress(ProgressEvent{Message: fmt.Sprintf("Converting %s -> %s", job.SourcePath, job.DestPath), Level: LevelVerbose})

	if err := c.transcoder.Convert(ctx, c.source(job), staging, job.Format); err != nil {
		os.Remove(staging)
		return 0, err
	}

	fields := job.Track.Fields()
	if err := c.tagger.Tag(ctx, staging, fields, c.artwork); err != nil {
		os.Remove(staging)
		return 0, err
	}
	if c.settings.VerifyTags {
		if err := c.tagger.Verify(staging, fields); err != nil {
			os.Remove(staging)
			return 0, err
		}
	}

	if err := ioutils.MoveFile(ctx, staging, job.DestPath); err != nil {
		os.Remove(staging)
		return 0, err
	}

	c.progress(ProgressEvent{Message: fmt.Sprintf("Converted: %s", filepath.Base(job.DestPath)), Level: LevelVerbose})
	return outcomeConverted, nil
}

// source builds the transcoder input for job, applying the set's probe
// directory if one is configured.
func (c *Converter) source(job *model.Job) transcode.Source {
	src := transcode.Source{Path: job.SourcePath, Loop: job.LoopPath}
	for _, sc := range c.settings.Sets {
		if sc.Name != job.Set || sc.ProbeDir == "" {
			continue
		}
		probeDir := c.settings.Resolve(sc.ProbeDir)
		src.ProbePath = resolve(probeDir, job.Track.Source)
		if job.Track.HasLoop() {
			src.ProbeLoop = resolve(probeDir, job.Track.Loop)
		}
	}
	return src
}

func (c *Converter) playlistEntry(ctx context.Context, job *model.Job) audio.PlaylistEntry {
	e := audio.PlaylistEntry{
		Path:   job.DestPath,
		Title:  job.Track.Title,
		Artist: job.Track.Artist,
		Album:  job.Track.Album,
	}
	if c.settings.CreatePlaylist && c.prober != nil {
		if d, err := c.prober.Duration(ctx, job.DestPath); err == nil {
			e.Duration = d
		}
	}
	return e
}

// writePlaylists writes one playlist per format into the set directory.
func (c *Converter) writePlaylists(ctx context.Context, set *model.MetadataSet, entries map[model.Format][]audio.PlaylistEntry) {
	for _, format := range model.Formats {
		list := entries[format]
		if len(list) == 0 {
			continue
		}

		dir := c.paths.SetDir(set.Name, format)
		for i := range list {
			if rel, err := filepath.Rel(dir, list[i].Path); err == nil {
				list[i].Path = rel
			}
		}

		content := c.playlist.CreatePlaylist(&audio.Playlist{Title: set.Name, Entries: list})
		name := ioutils.SanitizeFileName(set.Name+"-"+string(format)) + c.playlistExtension()
		path := filepath.Join(dir, name)

		err := ioutils.EnsureDir(dir)
		if err == nil {
			err = ioutils.WriteFile(ctx, path, []byte(content))
		}
		if err != nil {
			c.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
			continue
		}
		c.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", path), Level: LevelSuccess})
	}
}

func (c *Converter) playlistExtension() string {
	f, _ := audio.ParsePlaylistFormat(c.settings.PlaylistFormat)
	return f.Extension()
}

func (c *Converter) loadArtwork(ctx context.Context) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.settings.CoverArtIsURL() {
		data, err = c.httpClient.Get(ctx, c.settings.CoverArt)
	} else {
		data, err = os.ReadFile(c.settings.Resolve(c.settings.CoverArt))
	}
	if err != nil {
		return nil, err
	}

	artwork, _, err := c.imageService.Prepare(ctx, data, ioutils.CoverArtOptions{
		Resize:        c.settings.CoverArtResize,
		MaxSize:       c.settings.CoverArtMaxSize,
		ConvertToJPEG: c.settings.ConvertCoverArtToJPG,
	})
	return artwork, err
}

// GetProgress returns the number of finished and planned jobs.
func (c *Converter) GetProgress() (done, total int32) {
	return atomic.LoadInt32(&c.doneJobs), c.totalJobs
}

// GetSetNames returns a description of each planned set.
func (c *Converter) GetSetNames() []string {
	names := make([]string, len(c.plans))
	for i, sp := range c.plans {
		names[i] = fmt.Sprintf("%s (%d entries, %d files)", sp.set.Name, sp.set.Len(), sp.jobCount())
	}
	return names
}

// Jobs returns every planned job in execution order within each set.
func (c *Converter) Jobs() []*model.Job {
	var jobs []*model.Job
	for _, sp := range c.plans {
		for _, entry := range sp.entries {
			jobs = append(jobs, entry...)
		}
	}
	return jobs
}

func (c *Converter) progress(event ProgressEvent) {
	if c.onProgress == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress(event)
}

func (sp *setPlan) jobCount() int {
	return countJobs(sp.entries)
}

func countJobs(entries [][]*model.Job) int {
	n := 0
	for _, jobs := range entries {
		n += len(jobs)
	}
	return n
}

// resolve joins name to dir unless name is already absolute.
func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
