package media

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// SniffBytes is how much of a payload FileName inspects.
const SniffBytes = 262

// FileName returns a usable file name for an attachment. A declared name is
// reduced to its base; otherwise a name is derived from the sniffed content.
func FileName(declared string, head []byte) string {
	name := strings.TrimSpace(filepath.Base(strings.ReplaceAll(declared, "\\", "/")))
	if name != "" && name != "." && name != "/" {
		return name
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || kind.Extension == "" {
		return "file"
	}
	return "file." + kind.Extension
}
