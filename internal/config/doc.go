// Package config provides configuration management for track-converter.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values, including the three default descriptor sets
//   - Resolving relative paths against an explicit base directory
//   - Conversion to PathConfig for the model package
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Reads metadata/{1-original,2-new,3-remastered}.json
//	// Sources from source/<set>, outputs to output/<set>
//	// Produces FLAC by default, one job at a time
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Base Directory
//
// Every relative path in Settings (metadata dir, source dirs, output dir,
// cover art) is resolved against BaseDir. Nothing depends on the process
// working directory once BaseDir is set.
package config
