package player

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Metadata holds track information shown above the meters.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Subtitle joins artist and album, skipping whichever is empty.
func (m Metadata) Subtitle() string {
	switch {
	case m.Artist != "" && m.Album != "":
		return m.Artist + " - " + m.Album
	case m.Artist != "":
		return m.Artist
	}
	return m.Album
}

// ReadMetadata reads ID3v2 tags from MP3 files, falling back to the filename.
func ReadMetadata(path string) Metadata {
	base := filepath.Base(path)
	ext := filepath.Ext(base)

	if strings.EqualFold(ext, ".mp3") {
		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err == nil {
			defer tag.Close()
			m := Metadata{
				Title:  strings.TrimSpace(tag.Title()),
				Artist: strings.TrimSpace(tag.Artist()),
				Album:  strings.TrimSpace(tag.Album()),
			}
			if m.Title != "" {
				return m
			}
		}
	}

	return Metadata{Title: strings.TrimSuffix(base, ext)}
}
