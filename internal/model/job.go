package model

import "fmt"

// Job is a single conversion: one track into one format.
//
// Jobs are created by the converter for each (track, format) pair and
// discarded once the destination file exists.
type Job struct {
	// Set is the name of the MetadataSet the track belongs to.
	Set string

	Track  *Track
	Format Format

	// SourcePath is the resolved path of Track.Source.
	SourcePath string

	// LoopPath is the resolved path of Track.Loop, empty for single files.
	LoopPath string

	// DestPath is the final location of the tagged output.
	DestPath string
}

// String returns a short human readable description used in progress messages.
func (j *Job) String() string {
	return fmt.Sprintf("%s - %s [%s]", j.Track.Artist, j.Track.Title, j.Format)
}
