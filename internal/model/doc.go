// Package model defines the core data structures used throughout
// the track-converter application.
//
// # MetadataSet
//
// A MetadataSet is the ordered list of tracks read from one descriptor
// file (one release variant such as "1-original"):
//
//	set, err := metadata.Load("metadata/1-original.json")
//	for _, track := range set.Tracks {
//	    fmt.Println(track.Artist, "-", track.Title)
//	}
//
// # Track
//
// Track is one descriptor record: the source file, the tag fields to write
// and the formats to produce. Tracks are never modified after load.
//
// # Job
//
// Job pairs a Track with a single target Format and the resolved source,
// staging and destination paths.
//
// # Path Configuration
//
// PathConfig controls how destination paths are computed using placeholders:
//
//	cfg := &model.PathConfig{
//	    OutputDir:      "/music/converted",
//	    SetDirFormat:   "{set}",
//	    FileNameFormat: "{artist} - {title}",
//	}
//	cfg.DestPath("1-original", track, model.FormatFLAC)
//	// "/music/converted/1-original/Band - Intro.flac"
//
// Available placeholders: {artist}, {album}, {albumartist}, {title},
// {tracknum}, {disc}, {year}, {set}, {format}
package model
