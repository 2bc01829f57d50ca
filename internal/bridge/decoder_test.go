package bridge

import (
	"testing"
)

func TestUTF8Decoder(t *testing.T) {
	dec := NewUTF8Decoder()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"ascii", []byte("hello"), "hello"},
		{"multibyte", []byte("ß∂ƒ"), "ß∂ƒ"},
		{"bom stripped", []byte("\xEF\xBB\xBFhi"), "hi"},
		{"invalid continuation", []byte{'x', 0xE2, 0x28, 0xA1}, "x�(�"},
		{"lone continuation", []byte{0x80}, "�"},
		{"truncated sequence", []byte{'o', 'k', 0xC3}, "ok�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dec.Decode(tt.in); got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUTF8Decoder_Reusable(t *testing.T) {
	dec := NewUTF8Decoder()
	if got := dec.Decode([]byte{0xC3}); got != "�" {
		t.Fatalf("first Decode = %q", got)
	}
	// A truncated sequence must not leak into the next call.
	if got := dec.Decode([]byte{0xA9}); got != "�" {
		t.Errorf("second Decode = %q, want %q", got, "�")
	}
}
