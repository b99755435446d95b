package admission

import (
	"bytes"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

// MinSniffLen is the shortest buffer the validator will classify.
const MinSniffLen = 8

type signature struct {
	magic   []byte
	format  entity.ImageFormat
	variant string
}

var signatures = []signature{
	{magic: []byte{0xFF, 0xD8, 0xFF, 0xE0}, format: entity.FormatJPEG, variant: "jfif"},
	{magic: []byte{0xFF, 0xD8, 0xFF, 0xE1}, format: entity.FormatJPEG, variant: "exif"},
	{magic: []byte{0xFF, 0xD8, 0xFF}, format: entity.FormatJPEG, variant: "raw"},
	{magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, format: entity.FormatPNG},
	{magic: []byte("GIF87a"), format: entity.FormatGIF, variant: "87a"},
	{magic: []byte("GIF89a"), format: entity.FormatGIF, variant: "89a"},
}

var (
	riffTag = []byte("RIFF")
	webpTag = []byte("WEBP")
)

const webpTagOffset = 8

// Sniff classifies data by its leading bytes. It never looks at names or
// declared types. ok is false for anything outside the signature table.
func Sniff(data []byte) (format entity.ImageFormat, variant string, ok bool) {
	if len(data) < MinSniffLen {
		return "", "", false
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format, sig.variant, true
		}
	}

	// RIFF alone also matches AVI and WAV containers.
	if bytes.HasPrefix(data, riffTag) &&
		len(data) >= webpTagOffset+len(webpTag) &&
		bytes.Equal(data[webpTagOffset:webpTagOffset+len(webpTag)], webpTag) {
		return entity.FormatWebP, "", true
	}

	return "", "", false
}
