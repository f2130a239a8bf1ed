// Package audio detects audio containers from their leading bytes.
package audio

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// Supported lists the accepted audio MIME types. Aliases known to mimetype
// (audio/x-wav, audio/x-flac, ...) match their canonical entry.
var Supported = []string{
	"audio/mpeg",
	"audio/wav",
	"audio/ogg",
	"audio/flac",
	"audio/aac",
	"audio/x-m4a",
	"audio/mp4",
	"audio/aiff",
}

// Sniffer implements arcontent.AudioSniffer with an allow-list.
type Sniffer struct {
	allowed []string
}

var _ arcontent.AudioSniffer = (*Sniffer)(nil)

// NewSniffer returns a Sniffer accepting the Supported types.
func NewSniffer() *Sniffer {
	return &Sniffer{allowed: Supported}
}

// NewSnifferFor returns a Sniffer accepting only the given MIME types.
func NewSnifferFor(mimeTypes ...string) *Sniffer {
	return &Sniffer{allowed: mimeTypes}
}

// DetectFormat returns the container of data or arcontent.ErrUnsupportedFormat.
func (s *Sniffer) DetectFormat(data []byte) (arcontent.AudioFormat, error) {
	if len(data) == 0 {
		return arcontent.AudioFormat{}, arcontent.ErrUnsupportedFormat
	}
	mtype := mimetype.Detect(data)
	for _, allowed := range s.allowed {
		if mtype.Is(allowed) {
			return arcontent.AudioFormat{MimeType: allowed, Extension: mtype.Extension()}, nil
		}
	}
	return arcontent.AudioFormat{}, arcontent.ErrUnsupportedFormat
}
