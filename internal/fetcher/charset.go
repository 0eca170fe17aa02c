// Package fetcher reads the tabular input artifacts of a reconciliation
// batch: CSV and XLSX sheets, price-book ZIP archives, and FTP drops.
package fetcher

import (
	"bytes"
	"io"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText normalizes raw spreadsheet bytes to UTF-8. Excel CSV exports
// arrive either UTF-8 (frequently BOM-prefixed) or Windows-1252; anything that
// is not valid UTF-8 after BOM stripping is decoded as Windows-1252.
func DecodeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, eris.Wrap(err, "charset: decode windows-1252")
	}
	return decoded, nil
}

// DecodeReader reads everything from r and normalizes it to UTF-8.
func DecodeReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "charset: read input")
	}
	return DecodeText(data)
}
