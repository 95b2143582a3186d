package audio

import (
	"strings"

	"github.com/bogem/id3v2"
	"github.com/handiism/track-converter/internal/model"
)

// id3Frames maps well-known fields to their ID3v2.4 text frames. Comment is
// handled separately as a COMM frame; anything else becomes TXXX.
var id3Frames = map[string]string{
	model.FieldTitle:       "TIT2",
	model.FieldArtist:      "TPE1",
	model.FieldAlbum:       "TALB",
	model.FieldAlbumArtist: "TPE2",
	model.FieldTrack:       "TRCK",
	model.FieldDisc:        "TPOS",
	model.FieldDate:        "TDRC",
	model.FieldGenre:       "TCON",
}

// tagMP3 writes ID3v2.4 tags. Existing frames are dropped first, including
// the encoder frame ffmpeg leaves behind.
func (t *Tagger) tagMP3(path string, fields model.Fields, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if fields != nil {
		tag.DeleteAllFrames()
		for _, key := range fields.Keys() {
			value := fields[key]
			if id, ok := id3Frames[key]; ok {
				tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
				continue
			}
			if key == model.FieldComment {
				tag.AddCommentFrame(id3v2.CommentFrame{
					Encoding: id3v2.EncodingUTF8,
					Language: t.config.CommentLanguage,
					Text:     value,
				})
				continue
			}
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: strings.ToUpper(key),
				Value:       value,
			})
		}
	}

	if artwork != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    imageMIME(artwork),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     artwork,
		})
	}

	return tag.Save()
}
