package transcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg not found on PATH")
	ErrFFprobeNotFound = errors.New("ffprobe not found on PATH")
)

// Pre-compiled regexes for classifying ffmpeg stderr output.
var (
	reEncoderMissing = regexp.MustCompile(
		`Unknown encoder|Encoder .* not found|Requested output format .* is not a suitable output format`)

	reInvalidInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|could not find codec parameters|moov atom not found`)

	reMissingFile = regexp.MustCompile(
		`No such file or directory`)

	reNoSpace = regexp.MustCompile(
		`No space left on device`)
)

// Classify returns a short human readable cause for a failed ffmpeg run,
// or "" when stderr matches no known pattern.
func Classify(stderr string) string {
	switch {
	case reEncoderMissing.MatchString(stderr):
		return "encoder not available in this ffmpeg build"
	case reInvalidInput.MatchString(stderr):
		return "input is not decodable audio"
	case reMissingFile.MatchString(stderr):
		return "input file missing"
	case reNoSpace.MatchString(stderr):
		return "disk full"
	}
	return ""
}

// ConversionError reports a transcoder invocation that did not succeed.
type ConversionError struct {
	// Tool is the executable that failed ("ffmpeg" or "ffprobe").
	Tool string

	// Target is the file that was being produced or probed.
	Target string

	// ExitCode is the process exit status, or -1 when it never exited
	// normally (failed to start, killed, timed out).
	ExitCode int

	// Stderr holds the last lines the tool printed.
	Stderr string

	Err error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed for %s", e.Tool, e.Target)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit %d)", e.ExitCode)
	}
	if reason := Classify(e.Stderr); reason != "" {
		b.WriteString(": " + reason)
	} else if line := lastLine(e.Stderr); line != "" {
		b.WriteString(": " + line)
	} else if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// tail keeps the last n lines of s.
func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
