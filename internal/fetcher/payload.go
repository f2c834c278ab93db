package fetcher

import (
	"bytes"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Magic numbers for the payload types the built-in strategies handle.
var magics = map[string][][]byte{
	"zip":    {[]byte("PK\x03\x04")},
	"laz":    {[]byte("LASF")},
	"las":    {[]byte("LASF")},
	"tif":    {{0x49, 0x49, 0x2a, 0x00}, {0x4d, 0x4d, 0x00, 0x2a}},
	"tiff":   {{0x49, 0x49, 0x2a, 0x00}, {0x4d, 0x4d, 0x00, 0x2a}},
	"tar.gz": {{0x1f, 0x8b}},
	"tgz":    {{0x1f, 0x8b}},
	"gz":     {{0x1f, 0x8b}},
}

// VerifyPayload checks that the downloaded file is a real resource of the
// expected type and not an upstream placeholder. An empty body or an HTML
// error page unwraps to ErrNotFound (many tiles legitimately have no
// coverage); a non-placeholder body with the wrong signature unwraps to
// ErrCorrupt. Extensions without a known magic number only get the
// placeholder check.
func VerifyPayload(path, sourceExt string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "verify: open payload")
	}
	defer f.Close() //nolint:errcheck

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]

	if n == 0 {
		return eris.Wrap(ErrNotFound, "verify: empty response body")
	}
	if looksLikeMarkup(head) {
		return eris.Wrap(ErrNotFound, "verify: upstream returned an HTML placeholder page")
	}

	expected, known := magics[strings.ToLower(sourceExt)]
	if !known {
		return nil
	}
	for _, m := range expected {
		if bytes.HasPrefix(head, m) {
			return nil
		}
	}
	return eris.Wrapf(ErrCorrupt, "verify: body does not match .%s signature", sourceExt)
}

func looksLikeMarkup(head []byte) bool {
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	lower := bytes.ToLower(trimmed)
	for _, tag := range [][]byte{[]byte("<!doctype"), []byte("<html"), []byte("<head"), []byte("<?xml"), []byte("<error")} {
		if bytes.HasPrefix(lower, tag) {
			return true
		}
	}
	return false
}
