package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Prober reads audio durations.
type Prober struct {
	ffprobePath string
}

// NewProber creates a Prober that falls back to the given ffprobe binary.
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Duration returns the length of the audio file at path in seconds.
//
// WAV and MP3 are decoded natively; other containers, or files the native
// readers reject, are handed to ffprobe.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		if d, err := wavDuration(path); err == nil {
			return d, nil
		}
	case ".mp3":
		if d, err := mp3Duration(path); err == nil {
			return d, nil
		}
	}
	return p.ffprobe(ctx, path)
}

func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, errors.New("not a valid wav file")
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, err
	}
	return dur.Seconds(), nil
}

func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	// Decoded output is 16-bit stereo: 4 bytes per sample frame.
	length := d.Length()
	if length <= 0 || d.SampleRate() <= 0 {
		return 0, errors.New("unknown mp3 length")
	}
	return float64(length) / 4 / float64(d.SampleRate()), nil
}

// ffprobe runs `ffprobe -show_format` and reads format.duration.
func (p *Prober) ffprobe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			exitCode = exitErr.ExitCode()
		}
		return 0, &ConversionError{Tool: "ffprobe", Target: path, ExitCode: exitCode, Stderr: tail(stderr.String(), 5), Err: err}
	}

	d, err := parseProbeDuration(out)
	if err != nil {
		return 0, &ConversionError{Tool: "ffprobe", Target: path, ExitCode: 0, Err: err}
	}
	return d, nil
}

func parseProbeDuration(out []byte) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe did not return a number for format.duration: %q", result.Format.Duration)
	}
	return d, nil
}
