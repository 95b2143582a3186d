package transcode

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/model"
)

// Source is the input of one conversion.
type Source struct {
	// Path is the source file, or the intro of an intro/loop pair.
	Path string

	// Loop is the looped half of a pair; empty for single files.
	Loop string

	// ProbePath and ProbeLoop override where durations are read from.
	// Empty means the files above are probed.
	ProbePath string
	ProbeLoop string
}

// LoopOptions controls looping and fade out.
type LoopOptions struct {
	Enabled      bool
	Count        int     // extra plays after the first
	FadeDelay    float64 // seconds into the following play-through the fade starts
	FadeDuration float64 // seconds
}

// Options configures the FFmpeg transcoder.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
	Verbose     bool

	MP3Quality      int
	OggQuality      int
	FLACCompression int
	OpusBitrate     string
	AACBitrate      string

	Loop LoopOptions

	// OrgRenderer is the command that renders an Organya song to raw PCM
	// on stdout. See RendererArgs for its placeholders.
	OrgRenderer []string
}

// OptionsFromSettings derives transcoder options from settings.
func OptionsFromSettings(s *config.Settings) Options {
	return Options{
		FFmpegPath:      s.FFmpegPath,
		FFprobePath:     s.FFprobePath,
		Timeout:         s.Timeout(),
		Verbose:         s.Verbose,
		MP3Quality:      s.MP3Quality,
		OggQuality:      s.OggQuality,
		FLACCompression: s.FLACCompression,
		OpusBitrate:     s.OpusBitrate,
		AACBitrate:      s.AACBitrate,
		Loop: LoopOptions{
			Enabled:      s.LoopEnabled,
			Count:        s.LoopCount,
			FadeDelay:    s.FadeDelay,
			FadeDuration: s.FadeDuration,
		},
		OrgRenderer: s.Renderer(),
	}
}

// Fade is the computed fade window for a looped conversion, in seconds.
type Fade struct {
	Start    float64
	Duration float64
}

// End is where the output is cut: half a second after the fade completes.
func (f *Fade) End() float64 {
	return f.Start + f.Duration + 0.5
}

// ComputeFade returns the fade window for a source of the given lengths.
// For a single file loopLength is ignored and the whole file loops; for a
// pair the intro plays once and the loop part repeats.
func ComputeFade(opts LoopOptions, introLength, loopLength float64, pair bool) *Fade {
	var main float64
	if pair {
		main = introLength + loopLength*float64(opts.Count)
	} else {
		main = introLength + introLength*float64(opts.Count)
	}
	return &Fade{
		Start:    main + opts.FadeDelay,
		Duration: opts.FadeDuration,
	}
}

// Muxer returns the ffmpeg output format name for f.
func Muxer(f model.Format) string {
	switch f {
	case model.FormatM4A:
		return "ipod"
	default:
		return string(f)
	}
}

// Build constructs the ffmpeg argument slice (without the executable) that
// converts src into target. fade is nil when looping is disabled.
//
// An Organya source is read as raw PCM from stdin; the caller pipes the
// renderer's output in.
func Build(opts Options, src Source, target string, format model.Format, fade *Fade) []string {
	args := make([]string, 0, 40)

	// --- Preamble ---
	args = append(args, "-hide_banner", "-nostdin", "-y")
	if opts.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Inputs ---
	org := IsOrg(src.Path)
	pair := src.Loop != "" && !org
	switch {
	case org:
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(orgSampleRate),
			"-ac", strconv.Itoa(orgChannels),
			"-i", "pipe:0",
		)
	case pair && fade != nil:
		args = append(args, "-i", src.Path, "-stream_loop", "-1", "-i", src.Loop)
	case pair:
		args = append(args, "-i", src.Path, "-i", src.Loop)
	case fade != nil:
		args = append(args, "-stream_loop", "-1", "-i", src.Path)
	default:
		args = append(args, "-i", src.Path)
	}

	// --- Audio graph and maps ---
	switch {
	case pair && fade != nil:
		args = append(args,
			"-filter_complex", fmt.Sprintf("[0:a][1:a]concat=n=2:v=0:a=1[cout];[cout]%s[out]", afade(fade)),
			"-map", "[out]",
		)
	case pair:
		args = append(args,
			"-filter_complex", "[0:a][1:a]concat=n=2:v=0:a=1[out]",
			"-map", "[out]",
		)
	case fade != nil:
		args = append(args, "-map", "0:a", "-af", afade(fade))
	default:
		args = append(args, "-map", "0:a")
	}

	if fade != nil {
		args = append(args, "-t", seconds(fade.End()))
	}

	// Source tags are never carried over; the tagger writes them afresh.
	args = append(args, "-map_metadata", "-1")

	// --- Codec ---
	args = appendCodec(args, opts, format)

	// --- Output ---
	args = append(args, "-f", Muxer(format), target)

	return args
}

// BuildRemux constructs arguments that copy input to output unchanged
// except for the given metadata.
func BuildRemux(input, output string, format model.Format, fields model.Fields) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "error",
		"-i", input,
		"-map", "0",
		"-c", "copy",
		"-map_metadata", "-1",
	}
	for _, key := range fields.Keys() {
		args = append(args, "-metadata", key+"="+fields[key])
	}
	if format == model.FormatM4A {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, "-f", Muxer(format), output)
}

// appendCodec adds the codec-specific arguments for the output stream.
func appendCodec(args []string, opts Options, format model.Format) []string {
	switch format {
	case model.FormatFLAC:
		args = append(args, "-c:a", "flac", "-compression_level", strconv.Itoa(opts.FLACCompression))
	case model.FormatMP3:
		args = append(args, "-c:a", "libmp3lame", "-q:a", strconv.Itoa(opts.MP3Quality))
	case model.FormatWAV:
		args = append(args, "-c:a", "pcm_s16le")
	case model.FormatAIFF:
		args = append(args, "-c:a", "pcm_s16be")
	case model.FormatOGG:
		args = append(args, "-c:a", "libvorbis", "-q:a", strconv.Itoa(opts.OggQuality))
	case model.FormatOpus:
		args = append(args, "-c:a", "libopus", "-b:a", opts.OpusBitrate)
	case model.FormatM4A:
		args = append(args, "-c:a", "aac", "-b:a", opts.AACBitrate, "-movflags", "+faststart")
	}
	return args
}

func afade(f *Fade) string {
	return fmt.Sprintf("afade=t=out:st=%s:d=%s", seconds(f.Start), seconds(f.Duration))
}

// seconds formats v with at most six decimals and no trailing zeros.
func seconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
