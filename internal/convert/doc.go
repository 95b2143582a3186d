// Package convert provides the batch orchestration that turns descriptor
// sets into tagged audio files.
//
// # Converter
//
// The Converter coordinates the whole run:
//
//  1. Load every configured descriptor (a ParseError here is fatal)
//  2. Plan one job per entry and target format
//  3. Load and prepare cover art (optional)
//  4. Transcode each job into a staging file beside its destination
//  5. Tag, verify, and rename the staging file into place
//  6. Generate playlists (optional)
//
// # Basic Usage
//
//	conv := convert.NewConverter(settings, func(event convert.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := conv.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := conv.Run(ctx)
//
// # Failures
//
// A missing source yields a *FileNotFoundError, a failed transcode a
// *transcode.ConversionError and a failed tag write an *audio.TaggingError.
// Each is reported as a LevelError event; the remaining formats of that
// entry are skipped and the batch moves on, unless stop_on_error is set.
//
// # Concurrency
//
// Jobs inside a set run one at a time. Sets run in parallel up to
// max_concurrent_sets, which defaults to 1.
package convert
