package filetype

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const psdMIME = "image/vnd.adobe.photoshop"

// Detector sniffs saved uploads using magic bytes, not filenames.
// Detection is advisory only: the external rasterizer stays the
// authority on whether a file is convertible.
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// LooksLikePSD reports whether the file content sniffs as a Photoshop
// document. Detection errors count as a pass so an unreadable sniff
// never blocks conversion.
func (d *Detector) LooksLikePSD(filePath string) bool {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		log.Debug().Err(err).Str("file", filePath).Msg("file type detection failed")
		return true
	}

	log.Debug().Str("mime", mtype.String()).Str("file", filePath).Msg("detected file type")
	return mtype.Is(psdMIME)
}
