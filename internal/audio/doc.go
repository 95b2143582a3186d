// Package audio writes tags into converted files and generates playlists.
//
// # Tagging
//
// Use the Tagger to write descriptor fields and cover art:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig(), ffmpeg)
//	err := tagger.Tag(ctx, path, track.Fields(), artworkBytes)
//	err = tagger.Verify(path, track.Fields())
//
// Native writers exist for MP3 (ID3v2.4), FLAC (Vorbis comments and
// PICTURE) and WAV (RIFF INFO). Other containers are remuxed by ffmpeg
// with -metadata arguments and carry no artwork.
//
// # Playlist Generation
//
// Generate playlists in various formats:
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(playlist)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
