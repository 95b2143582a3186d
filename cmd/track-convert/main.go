package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/convert"
	"github.com/handiism/track-converter/internal/transcode"
)

// defaultConfig is read from the working directory when -config is not given.
const defaultConfig = "track-convert.json"

// Exit codes
const (
	exitFatal       = 1
	exitPartial     = 2
	exitInterrupted = 130
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configFlag      = flag.String("config", "", "Path to config file (default "+defaultConfig+" if present)")
		metadataFlag    = flag.String("metadata", "", "Descriptor directory, relative to the working directory (overrides config)")
		sourceFlag      = flag.String("source", "", "Source root, relative to the working directory; each set reads from <source>/<set name> (overrides config)")
		outputFlag      = flag.String("output", "", "Output directory, relative to the working directory (overrides config)")
		formatsFlag     = flag.String("formats", "", "Default target formats, comma-separated (overrides config)")
		forceFlag       = flag.Bool("force", false, "Overwrite existing output files")
		playlistFlag    = flag.Bool("playlist", false, "Create playlist files")
		stopOnErrorFlag = flag.Bool("stop-on-error", false, "Stop the batch at the first failed entry")
		loopFlag        = flag.Bool("loop", false, "Loop each track and fade out")
		verboseFlag     = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag      = flag.Bool("dry-run", false, "Plan conversions without writing anything")
		checkFlag       = flag.Bool("check", false, "Check that ffmpeg/ffprobe are available and exit")
	)
	flag.BoolVar(forceFlag, "f", false, "Shorthand for -force")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Track Converter - convert and tag audio from JSON descriptors")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  track-convert [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "For interactive mode, use: track-convert-tui")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load config
	path := *configFlag
	if path == "" {
		path = defaultConfig
	}
	settings, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error loading config: %v", err)))
		return exitFatal
	}

	// Apply flags; relative paths are taken from the working directory
	overrides := config.Overrides{
		MetadataDir: *metadataFlag,
		SourceRoot:  *sourceFlag,
		OutputDir:   *outputFlag,
	}
	if *formatsFlag != "" {
		overrides.Formats = strings.Split(*formatsFlag, ",")
	}
	if err := settings.Apply(overrides); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Invalid flags: %v", err)))
		return exitFatal
	}
	settings.Overwrite = settings.Overwrite || *forceFlag
	settings.CreatePlaylist = settings.CreatePlaylist || *playlistFlag
	settings.StopOnError = settings.StopOnError || *stopOnErrorFlag
	settings.LoopEnabled = settings.LoopEnabled || *loopFlag
	settings.Verbose = settings.Verbose || *verboseFlag
	settings.DryRun = settings.DryRun || *dryRunFlag

	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Invalid settings: %v", err)))
		return exitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := transcode.OptionsFromSettings(settings)
	if *checkFlag {
		return check(ctx, opts)
	}
	if !settings.DryRun {
		if err := transcode.CheckDeps(opts); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return exitFatal
		}
	}

	converter := convert.NewConverter(settings, func(event convert.ProgressEvent) {
		if event.Level == convert.LevelVerbose && !settings.Verbose {
			return
		}
		printEvent(event)
	})

	fmt.Println(titleStyle.Render("♪ Track Converter"))
	fmt.Println(ruleStyle.Render(strings.Repeat("━", 40)))
	fmt.Println()

	if err := converter.Initialize(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error initializing: %v", err)))
		return exitFatal
	}
	for _, name := range converter.GetSetNames() {
		fmt.Println(dimStyle.Render("  ♪ " + name))
	}
	fmt.Println()

	summary, err := converter.Run(ctx)
	printSummary(summary)

	switch {
	case ctx.Err() != nil:
		fmt.Println(warningStyle.Render("Conversion cancelled."))
		return exitInterrupted
	case errors.Is(err, convert.ErrStopped):
		return exitPartial
	case err != nil:
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error during conversion: %v", err)))
		return exitFatal
	case summary.HasFailures():
		return exitPartial
	}
	return 0
}

func check(ctx context.Context, opts transcode.Options) int {
	if err := transcode.CheckDeps(opts); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return exitFatal
	}
	version, err := transcode.Version(ctx, opts.FFmpegPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("ffmpeg -version failed: %v", err)))
		return exitFatal
	}
	fmt.Println(successStyle.Render("✓ " + version))
	return 0
}

func printEvent(event convert.ProgressEvent) {
	var style lipgloss.Style
	prefix := "•"
	switch event.Level {
	case convert.LevelError:
		style, prefix = errorStyle, "✗"
	case convert.LevelWarning:
		style, prefix = warningStyle, "!"
	case convert.LevelSuccess:
		style, prefix = successStyle, "✓"
	case convert.LevelInfo:
		style, prefix = infoStyle, "›"
	default:
		style = dimStyle
	}
	fmt.Println(style.Render(prefix + " " + event.Message))
}

func printSummary(summary *convert.Summary) {
	if summary == nil {
		return
	}
	totals := summary.Totals()

	fmt.Println()
	fmt.Println(ruleStyle.Render(strings.Repeat("━", 40)))
	for _, set := range summary.Sets {
		fmt.Printf("  %-16s %s\n", set.Name, set)
	}

	line := fmt.Sprintf("✨ Done in %s: %s", summary.Duration.Round(time.Millisecond), &totals)
	if totals.Failed > 0 {
		fmt.Println(warningStyle.Render(line))
	} else {
		fmt.Println(successStyle.Render(line))
	}
}
