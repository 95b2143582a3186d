package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/handiism/track-converter/internal/model"
)

// Transcoder converts one source into one target format.
type Transcoder interface {
	Convert(ctx context.Context, src Source, target string, format model.Format) error
}

// FFmpeg is the Transcoder backed by the ffmpeg executable.
type FFmpeg struct {
	opts   Options
	prober *Prober
}

// NewFFmpeg creates an FFmpeg transcoder.
func NewFFmpeg(opts Options) *FFmpeg {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		opts:   opts,
		prober: NewProber(opts.FFprobePath),
	}
}

// Prober returns the duration prober used for looped conversions.
func (f *FFmpeg) Prober() *Prober {
	return f.prober
}

// Convert runs ffmpeg to produce target from src. On failure the partial
// target is removed and a *ConversionError is returned.
//
// Organya songs are always looped and faded using the timing in their
// header, with the configured renderer feeding ffmpeg's stdin.
func (f *FFmpeg) Convert(ctx context.Context, src Source, target string, format model.Format) error {
	if IsOrg(src.Path) {
		return f.convertOrg(ctx, src, target, format)
	}

	var fade *Fade
	if f.opts.Loop.Enabled {
		var err error
		if fade, err = f.fade(ctx, src); err != nil {
			return err
		}
	}

	err := f.run(ctx, Build(f.opts, src, target, format, fade), target, nil)
	if err != nil {
		_ = os.Remove(target)
	}
	return err
}

// Remux rewrites input into output with the given metadata and no
// re-encoding.
func (f *FFmpeg) Remux(ctx context.Context, input, output string, format model.Format, fields model.Fields) error {
	err := f.run(ctx, BuildRemux(input, output, format, fields), output, nil)
	if err != nil {
		_ = os.Remove(output)
	}
	return err
}

// fade probes the source lengths and computes the fade window.
func (f *FFmpeg) fade(ctx context.Context, src Source) (*Fade, error) {
	introPath := src.Path
	if src.ProbePath != "" {
		introPath = src.ProbePath
	}
	intro, err := f.prober.Duration(ctx, introPath)
	if err != nil {
		return nil, err
	}

	if src.Loop == "" {
		return ComputeFade(f.opts.Loop, intro, 0, false), nil
	}

	loopPath := src.Loop
	if src.ProbeLoop != "" {
		loopPath = src.ProbeLoop
	}
	loop, err := f.prober.Duration(ctx, loopPath)
	if err != nil {
		return nil, err
	}
	return ComputeFade(f.opts.Loop, intro, loop, true), nil
}

func (f *FFmpeg) convertOrg(ctx context.Context, src Source, target string, format model.Format) error {
	if len(f.opts.OrgRenderer) == 0 {
		return &ConversionError{Tool: "ffmpeg", Target: target, ExitCode: -1, Err: errors.New("no org_renderer configured")}
	}
	header, err := ReadOrgHeader(src.Path)
	if err != nil {
		return &ConversionError{Tool: "ffmpeg", Target: target, ExitCode: -1, Err: err}
	}

	fade := OrgFade(f.opts.Loop, header)
	feed := RendererArgs(f.opts.OrgRenderer, src.Path, f.opts.Loop.Count)

	err = f.run(ctx, Build(f.opts, src, target, format, fade), target, feed)
	if err != nil {
		_ = os.Remove(target)
	}
	return err
}

// run executes ffmpeg with args. When verbose, stderr is tee'd to
// os.Stderr in real time; otherwise it is captured for the error report.
//
// A non-empty feed is started first with its stdout connected to ffmpeg's
// stdin. It is killed once ffmpeg exits, since ffmpeg stops reading at the
// cut point.
func (f *FFmpeg) run(ctx context.Context, args []string, target string, feed []string) error {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.opts.FFmpegPath, args...)

	var stderrBuf bytes.Buffer
	if f.opts.Verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if len(feed) > 0 {
		stop, err := startFeed(ctx, feed, cmd)
		if err != nil {
			return &ConversionError{Tool: feed[0], Target: target, ExitCode: -1, Err: err}
		}
		defer stop()
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		exitCode = exitErr.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s: %w", f.opts.Timeout, ctx.Err())
	} else if ctx.Err() != nil {
		err = ctx.Err()
	}

	return &ConversionError{
		Tool:     "ffmpeg",
		Target:   target,
		ExitCode: exitCode,
		Stderr:   tail(stderrBuf.String(), 20),
		Err:      err,
	}
}

// startFeed starts the feed command writing into cmd's stdin. The returned
// func closes the pipe and reaps the feed process.
func startFeed(ctx context.Context, feed []string, cmd *exec.Cmd) (func(), error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	renderer := exec.CommandContext(ctx, feed[0], feed[1:]...)
	renderer.Stdout = w
	if err := renderer.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	w.Close()
	cmd.Stdin = r

	return func() {
		r.Close()
		_ = renderer.Process.Kill()
		_ = renderer.Wait()
	}, nil
}

// CheckDeps verifies ffmpeg (and ffprobe when looping needs it) are
// available.
func CheckDeps(opts Options) error {
	var errs []error
	if _, err := exec.LookPath(opts.FFmpegPath); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s", ErrFFmpegNotFound, opts.FFmpegPath))
	}
	if opts.Loop.Enabled {
		if _, err := exec.LookPath(opts.FFprobePath); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrFFprobeNotFound, opts.FFprobePath))
		}
	}
	return errors.Join(errs...)
}

// Version returns the first line of `ffmpeg -version`.
func Version(ctx context.Context, ffmpegPath string) (string, error) {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return "", err
	}
	line := string(bytes.TrimSpace(out))
	if i := bytes.IndexByte(out, '\n'); i > 0 {
		line = string(bytes.TrimSpace(out[:i]))
	}
	return line, nil
}
