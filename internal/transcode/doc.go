// Package transcode runs the external transcoder that does all codec work.
//
// The converter depends only on the Transcoder interface so tests can swap
// in a stub. FFmpeg is the production implementation:
//
//	ff := transcode.NewFFmpeg(transcode.OptionsFromSettings(settings))
//	err := ff.Convert(ctx, transcode.Source{Path: "track01.ogg"}, "out.flac", model.FormatFLAC)
//
// # Looping
//
// When looping is enabled each source is played 1+LoopCount times and then
// faded out. Source durations come from a Prober, which reads WAV and MP3
// headers natively and falls back to ffprobe for everything else. An
// intro/loop pair plays the intro once followed by the looped part.
//
// # Errors
//
// A non-zero exit, a failed start or a timeout is returned as a
// *ConversionError carrying the tail of ffmpeg's stderr.
package transcode
