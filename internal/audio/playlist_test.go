package audio

import (
	"strings"
	"testing"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatM3U, false)

	content := creator.CreatePlaylist(pl)

	want := "flac/Band - Intro.flac\nflac/Band - Outro.flac\n"
	if content != want {
		t.Errorf("M3U = %q, want %q", content, want)
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatM3U, true)

	content := creator.CreatePlaylist(pl)

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	if !strings.Contains(content, "#EXTINF:94,Band - Intro\n") {
		t.Errorf("Extended M3U should contain rounded EXTINF, got:\n%s", content)
	}
	if !strings.Contains(content, "#EXTINF:-1,Band - Outro\n") {
		t.Errorf("unknown duration should be -1, got:\n%s", content)
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatPLS, false)

	content := creator.CreatePlaylist(pl)

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	if !strings.Contains(content, "File1=flac/Band - Intro.flac") {
		t.Error("PLS should contain File1=")
	}
	if !strings.Contains(content, "NumberOfEntries=2") {
		t.Error("PLS should contain NumberOfEntries")
	}
}

func TestPlaylistCreator_WPL(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatWPL, false)

	content := creator.CreatePlaylist(pl)

	if !strings.Contains(content, "<?wpl") {
		t.Error("WPL should contain XML declaration")
	}
	if !strings.Contains(content, "<smil>") {
		t.Error("WPL should contain smil element")
	}
	if !strings.Contains(content, "<media src=") {
		t.Error("WPL should contain media elements")
	}
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	pl := createTestPlaylist()
	creator := NewPlaylistCreator(FormatZPL, false)

	content := creator.CreatePlaylist(pl)

	if !strings.Contains(content, "<?zpl") {
		t.Error("ZPL should contain XML declaration")
	}
	if !strings.Contains(content, `albumTitle="Demo"`) {
		t.Error("ZPL should contain albumTitle attribute")
	}
	if !strings.Contains(content, `duration="93500"`) {
		t.Error("ZPL should contain duration in milliseconds")
	}
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	pl := &Playlist{
		Title: "Album <Special>",
		Entries: []PlaylistEntry{
			{Path: "Artist & Co - Track.mp3", Title: `Track & "Quote"`, Artist: "Artist & Co"},
		},
	}

	creator := NewPlaylistCreator(FormatWPL, false)
	content := creator.CreatePlaylist(pl)

	if !strings.Contains(content, "&amp;") {
		t.Error("WPL should escape & as &amp;")
	}
	if strings.Contains(content, "<Special>") {
		t.Error("WPL should escape < and >")
	}
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    PlaylistFormat
		ext     string
		wantErr bool
	}{
		{"m3u", FormatM3U, ".m3u", false},
		{"PLS", FormatPLS, ".pls", false},
		{"wpl", FormatWPL, ".wpl", false},
		{"zpl", FormatZPL, ".zpl", false},
		{"xspf", FormatM3U, ".m3u", true},
	}
	for _, tt := range tests {
		got, err := ParsePlaylistFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlaylistFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want || got.Extension() != tt.ext {
			t.Errorf("ParsePlaylistFormat(%q) = %v (%s), want %v (%s)", tt.in, got, got.Extension(), tt.want, tt.ext)
		}
	}
}

func createTestPlaylist() *Playlist {
	return &Playlist{
		Title: "1-original",
		Entries: []PlaylistEntry{
			{Path: "flac/Band - Intro.flac", Title: "Intro", Artist: "Band", Album: "Demo", Duration: 93.5},
			{Path: "flac/Band - Outro.flac", Title: "Outro", Artist: "Band", Album: "Demo"},
		},
	}
}
