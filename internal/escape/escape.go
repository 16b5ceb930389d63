// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

// Package escape converts between plain strings and the escaped
// representation used inside JSON string literals. The enclosing
// quotation marks are the caller's concern.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go4.org/mem"
)

var shortEsc = [...]byte{
	'\b': 'b',
	'\f': 'f',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	' ':  ' ', // sentinel
}

var hexDigit = []byte("0123456789abcdef")

// Quote encodes src so that it is safe for inclusion in a JSON string
// literal, escaping control characters, quotes, and backslashes.
func Quote(src mem.RO) []byte {
	out := make([]byte, 0, src.Len())
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		src = src.SliceFrom(n)

		if r >= utf8.RuneSelf {
			switch r {
			case '\ufffd', '\u2028', '\u2029':
				// The replacement rune and the line and paragraph
				// separators are written out in escaped form.
				out = appendU16(out, r)
			default:
				var rb [utf8.UTFMax]byte
				k := utf8.EncodeRune(rb[:], r)
				out = append(out, rb[:k]...)
			}
			continue
		}

		switch {
		case r == '"' || r == '\\':
			out = append(out, '\\', byte(r))
		case r >= ' ':
			out = append(out, byte(r))
		case shortEsc[r] != 0:
			out = append(out, '\\', shortEsc[r])
		default:
			out = appendU16(out, r)
		}
	}
	return out
}

// appendU16 appends the \uXXXX form of r, which must fit in 16 bits.
func appendU16(out []byte, r rune) []byte {
	return append(out, '\\', 'u',
		hexDigit[r>>12&15], hexDigit[r>>8&15], hexDigit[r>>4&15], hexDigit[r&15])
}

// Unquote decodes the contents of a JSON string literal, with the
// enclosing quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents.
// Invalid escapes are replaced by the Unicode replacement rune, but an
// escape sequence truncated by the end of input reports an error.
func Unquote(src mem.RO) ([]byte, error) {
	i := mem.IndexByte(src, '\\')
	if i < 0 {
		return mem.Append(nil, src), nil
	}

	dec := make([]byte, 0, src.Len())
	putRune := func(r rune) {
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], r)
		dec = append(dec, rb[:n]...)
	}
	for src.Len() != 0 {
		dec = mem.Append(dec, src.SliceTo(i))

		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}
		r, n := mem.DecodeRune(src)
		if n == 0 {
			n++
		}
		src = src.SliceFrom(n)

		switch r {
		case '"', '\\', '/':
			dec = append(dec, byte(r))
		case 'b':
			dec = append(dec, '\b')
		case 'f':
			dec = append(dec, '\f')
		case 'n':
			dec = append(dec, '\n')
		case 'r':
			dec = append(dec, '\r')
		case 't':
			dec = append(dec, '\t')
		case 'u':
			if src.Len() < 4 {
				return nil, errors.New("incomplete Unicode escape")
			}
			if v, err := parseHex(src.SliceTo(4)); err != nil {
				putRune(utf8.RuneError)
			} else {
				putRune(rune(v))
			}
			src = src.SliceFrom(4)
		default:
			putRune(utf8.RuneError)
		}

		// Find the next escape sequence. If there is none, blit the rest
		// of the input and go home.
		i = mem.IndexByte(src, '\\')
		if i < 0 {
			dec = mem.Append(dec, src)
			break
		}
	}
	return dec, nil
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		switch {
		case '0' <= b && b <= '9':
			v += int64(b - '0')
		case 'a' <= b && b <= 'f':
			v += int64(b - 'a' + 10)
		case 'A' <= b && b <= 'F':
			v += int64(b - 'A' + 10)
		default:
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
	}
	return v, nil
}
