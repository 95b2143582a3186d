// Package metadata loads descriptor files into model.MetadataSet values.
//
// A descriptor is a JSON file listing the tracks of one release variant.
// Two layouts are accepted.
//
// An array of records:
//
//	[
//	  {"source": "track01.ogg", "title": "Intro", "artist": "Band", "formats": ["flac", "mp3"]}
//	]
//
// An object keyed by source stem, with an optional "__common__" record whose
// fields apply to every other record unless overridden:
//
//	{
//	  "__common__": {"artist": "Band", "album": "OST"},
//	  "intro":      {"title": "Intro", "track": "1/12"},
//	  "boss":       {"title": "Boss", "track": 2, "loop": true}
//	}
//
// Records keep file order in both layouts. Any failure to read or decode a
// descriptor is reported as a *ParseError.
package metadata
