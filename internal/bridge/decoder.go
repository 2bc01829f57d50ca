package bridge

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Decoder turns guest bytes into text.
type Decoder interface {
	Decode(b []byte) string
}

// utf8Decoder decodes UTF-8, replacing malformed sequences with U+FFFD and
// dropping a leading byte order mark.
type utf8Decoder struct {
	dec *encoding.Decoder
}

// NewUTF8Decoder returns the decoder used by the bridge.
func NewUTF8Decoder() Decoder {
	return &utf8Decoder{dec: unicode.UTF8BOM.NewDecoder()}
}

// Decode never fails. The rune conversion fallback substitutes U+FFFD the
// same way.
func (d *utf8Decoder) Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := d.dec.Bytes(b)
	if err != nil {
		return string([]rune(string(b)))
	}
	return string(out)
}
