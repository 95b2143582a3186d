// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - File copying, moving and atomic writing
//   - Staging file names for outputs that are still being produced
//   - Filename sanitization for cross-platform compatibility
//   - Cover art resizing and format conversion
//
// # File Operations
//
//	tmp := ioutils.StagingPath("/out/Band - Intro.flac")
//	// ... produce tmp ...
//	err := ioutils.MoveFile(ctx, tmp, "/out/Band - Intro.flac")
//
// # Image Processing
//
// The ImageService prepares cover art before it is embedded:
//
//	svc := ioutils.NewImageService()
//	art, mime, err := svc.Prepare(ctx, data, ioutils.CoverArtOptions{Resize: true, MaxSize: 1000})
package ioutils
