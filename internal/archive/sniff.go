package archive

import (
	"bytes"

	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// zipMagic is the local-file-header signature every EPUB starts with.
// EPUB is a zip container; anything that does not open with this is not one.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ValidateEPUB runs the cheap structural checks on archive bytes. It is
// called at the import boundary and again before engine construction, since
// a file that passed import can still be truncated or overwritten on disk.
func ValidateEPUB(data []byte) error {
	if len(data) == 0 {
		return apperr.InvalidArchive("archive is empty")
	}
	if len(data) < len(zipMagic) || !bytes.HasPrefix(data, zipMagic) {
		return apperr.InvalidArchive("archive is not a zip container")
	}
	return nil
}
