package model

// MetadataSet is the ordered list of tracks loaded from one descriptor file.
//
// A set corresponds to one release variant ("1-original", "2-new",
// "3-remastered"). It is built once by the metadata loader and never
// mutated afterwards.
type MetadataSet struct {
	// Name identifies the set and is available as {set} in path templates.
	Name string

	// DescriptorPath is the JSON file the set was loaded from.
	DescriptorPath string

	// SourceDir is the directory source file names are resolved against.
	SourceDir string

	// Tracks are the descriptor records in file order.
	Tracks []*Track
}

// Len returns the number of tracks in the set.
func (s *MetadataSet) Len() int {
	return len(s.Tracks)
}
