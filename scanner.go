// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go4.org/mem"
)

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid Token = iota // invalid token
	LBrace               // left brace "{"
	RBrace               // right brace "}"
	LSquare              // left square bracket "["
	RSquare              // right square bracket "]"
	Comma                // comma ","
	Colon                // colon ":"
	Integer              // number: integer with no fraction or exponent
	Number               // number with fraction and/or exponent
	String               // quoted string
	True                 // constant: true
	False                // constant: false
	Null                 // constant: null

	BlockComment // comment: /* ... */
	LineComment  // comment: // ... <LF>

	// Do not modify the order of these constants without updating the
	// self-delimiting token check below.
)

var tokenStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",
	String:  "string",
	True:    "true",
	False:   "false",
	Null:    "null",

	BlockComment: "block commment",
	LineComment:  "line comment",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// ErrMoreInput is the starvation sentinel reported by a Scanner whose
// buffered input does not contain a complete token. The caller must
// either feed more input or mark the end of input before the scanner
// can make further progress. It is distinct from io.EOF, which reports
// that the input has ended and is fully consumed.
var ErrMoreInput = errors.New("more input required")

// A Scanner reads lexical tokens from input that arrives incrementally.
// Input is supplied with Feed in chunks of any size; chunk boundaries
// have no lexical significance and may fall in the middle of a token.
// Each call to Next advances the scanner to the next token, reports
// starvation, or reports an error. The scanner never blocks.
type Scanner struct {
	buf      []byte // buffered input, not yet consumed
	off      int    // offset into buf of the first unconsumed byte
	base     int    // offset of buf[0] from the start of input
	ended    bool   // no further input will arrive
	comments bool   // allow comments

	tok  Token
	text []byte // current token text, aliases buf
	err  error

	pos, end int // start and end offsets of current token

	// Apparent line and column offsets (0-based)
	pline, pcol int
	eline, ecol int
}

// NewScanner constructs a new lexical scanner with no buffered input.
func NewScanner() *Scanner { return new(Scanner) }

// AllowComments configures the scanner to report (true) or reject (false)
// comment tokens. Comments are a non-standard exension of the JSON spec.  If
// enabled, C++ style block comments (/* ... */) and line comments (// ...)
// are recognized and emitted as tokens.
func (s *Scanner) AllowComments(ok bool) { s.comments = ok }

// Feed appends a copy of chunk to the scanner's input buffer.
// Feed invalidates the text of the current token.
func (s *Scanner) Feed(chunk []byte) {
	if s.off > 0 {
		// Drop the consumed prefix so memory use is bounded by the
		// unconsumed suffix plus the new chunk.
		s.base += s.off
		s.buf = append(s.buf[:0], s.buf[s.off:]...)
		s.off = 0
	}
	s.buf = append(s.buf, chunk...)
}

// End informs the scanner that no further input will ever arrive. The
// caller must drain the remaining tokens with Next; a trailing token
// whose extent was not yet decidable (such as a number) is finalized by
// the drain.
func (s *Scanner) End() { s.ended = true }

// Next advances s to the next token of the input, or reports an error.
// Next returns ErrMoreInput if the buffered input does not contain a
// complete token, and io.EOF when ended input has been fully consumed.
func (s *Scanner) Next() error {
	s.err = nil
	s.tok = Invalid
	s.text = nil

	// Whitespace is consumed permanently; a starved retry restarts at
	// the first byte of the token, never inside the leading space.
	for s.off < len(s.buf) && isSpace(s.buf[s.off]) {
		if s.buf[s.off] == '\n' {
			s.eline++
			s.ecol = 0
		} else {
			s.ecol++
		}
		s.off++
	}
	s.pos, s.pline, s.pcol = s.base+s.off, s.eline, s.ecol
	s.end = s.pos
	if s.off == len(s.buf) {
		if s.ended {
			return s.setErr(io.EOF)
		}
		return ErrMoreInput
	}

	var tok Token
	var n int
	var err error
	switch ch := s.buf[s.off]; {
	case isSelfDelim(ch):
		tok, n = selfDelim(ch), 1
	case isNumStart(ch):
		tok, n, err = s.scanNumber()
	case ch == '"':
		tok, n, err = s.scanString()
	case ch == '/' && s.comments:
		tok, n, err = s.scanComment()
	case ch == 't' || ch == 'f' || ch == 'n':
		tok, n, err = s.scanName()
	default:
		return s.failf(0, "unexpected %q", rune(ch))
	}
	if err != nil {
		if err == ErrMoreInput {
			return err // not terminal; leave the input buffered for a retry
		}
		return s.setErr(err)
	}

	s.tok = tok
	s.text = s.buf[s.off : s.off+n]
	s.consume(n)
	s.end = s.base + s.off
	return nil
}

// consume advances the read position over n accepted bytes, updating
// the line and column accounting.
func (s *Scanner) consume(n int) {
	for _, b := range s.buf[s.off : s.off+n] {
		if b == '\n' {
			s.eline++
			s.ecol = 0
		} else {
			s.ecol++
		}
	}
	s.off += n
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.tok }

// Err returns the last error reported by Next.
func (s *Scanner) Err() error { return s.err }

// Text returns the undecoded text of the current token.  The return value is
// only valid until the next call of Next or Feed. The caller must copy the
// contents of the returned slice if it is needed beyond that.
func (s *Scanner) Text() []byte { return s.text }

// Copy returns a copy of the undecoded text of the current token.
func (s *Scanner) Copy() []byte { return append([]byte(nil), s.text...) }

// Span returns the location span of the current token.
func (s *Scanner) Span() Span { return Span{Pos: s.pos, End: s.end} }

// Location returns the complete location of the current token.
func (s *Scanner) Location() Location {
	return Location{
		Span:  s.Span(),
		First: LineCol{Line: s.pline + 1, Column: s.pcol},
		Last:  LineCol{Line: s.eline + 1, Column: s.ecol},
	}
}

// scanString scans a string token beginning at the current read
// position. It reports the token length in bytes, or ErrMoreInput if
// the string is not yet complete in the buffer.
func (s *Scanner) scanString() (Token, int, error) {
	in := s.buf[s.off:]
	i := 1 // the opening quote
	for {
		if i == len(in) {
			if s.ended {
				return 0, 0, s.errAt(i, "unterminated string")
			}
			return 0, 0, ErrMoreInput
		}
		switch ch := in[i]; {
		case ch == '"':
			return String, i + 1, nil

		case ch == '\\':
			// We are awaiting the completion of a \-escape.
			if i+1 == len(in) {
				if s.ended {
					return 0, 0, s.errAt(i, "unterminated string")
				}
				return 0, 0, ErrMoreInput
			}
			switch esc := in[i+1]; esc {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				i += 2
			case 'u':
				i += 2
				if len(in)-i < 4 {
					if s.ended {
						return 0, 0, s.errAt(i, "invalid Unicode escape: unexpected end of input")
					}
					return 0, 0, ErrMoreInput
				}
				for k := 0; k < 4; k++ {
					if !isHexDigit(in[i+k]) {
						return 0, 0, s.failf(i+k, "invalid Unicode escape: not a hex digit: %q", rune(in[i+k]))
					}
				}
				i += 4
			default:
				return 0, 0, s.failf(i+1, "invalid %q after escape", rune(esc))
			}

		case ch < ' ':
			return 0, 0, s.failf(i, "unescaped control %q", rune(ch))

		default:
			i++
		}
	}
}

// scanNumber scans an integer or floating-point number token.
func (s *Scanner) scanNumber() (Token, int, error) {
	in := s.buf[s.off:]
	i := 0
	if in[i] == '-' {
		// If there is a leading sign, we need at least one digit.
		i++
		if i == len(in) {
			if s.ended {
				return 0, 0, s.failf(i, "want digit, got end of input")
			}
			return 0, 0, ErrMoreInput
		}
		if !isDigit(in[i]) {
			return 0, 0, s.failf(i, "got %q, want digit", rune(in[i]))
		}
	}

	// Consume the remainder of an integer.
	for i < len(in) && isDigit(in[i]) {
		i++
	}
	if i == len(in) && !s.ended {
		return 0, 0, ErrMoreInput // more digits may follow
	}

	// Check for extra leading zeroes, which are disallowed by the JSON spec.
	// That is: 0.12 is OK, 01.2 is not.
	if hasExtraLeadingZeroes(in[:i]) {
		return 0, 0, s.failf(0, "extra leading zeroes")
	}

	tok := Integer

	// If a decimal point follows, consume a fractional part.
	if i < len(in) && in[i] == '.' {
		i++
		nd := 0
		for i < len(in) && isDigit(in[i]) {
			i++
			nd++
		}
		if i == len(in) && !s.ended {
			return 0, 0, ErrMoreInput
		}
		if nd == 0 {
			return 0, 0, s.failf(i, "no digits after decimal point")
		}
		tok = Number
	}

	// If an exponent follows, consume it.
	if i < len(in) && (in[i] == 'e' || in[i] == 'E') {
		i++
		if i == len(in) {
			if s.ended {
				return 0, 0, s.failf(i, "want sign or digit, got end of input")
			}
			return 0, 0, ErrMoreInput
		}
		if in[i] == '+' || in[i] == '-' {
			i++
		}
		nd := 0
		for i < len(in) && isDigit(in[i]) {
			i++
			nd++
		}
		if i == len(in) && !s.ended {
			return 0, 0, ErrMoreInput
		}
		if nd == 0 {
			return 0, 0, s.failf(i, "missing exponent digits")
		}
		tok = Number
	}
	return tok, i, nil
}

// scanName scans a run of lowercase letters and checks it against the
// constants of the grammar: true, false, null.
func (s *Scanner) scanName() (Token, int, error) {
	in := s.buf[s.off:]

	var tok Token
	var want mem.RO
	switch in[0] {
	case 't':
		tok, want = True, mem.S("true")
	case 'f':
		tok, want = False, mem.S("false")
	case 'n':
		tok, want = Null, mem.S("null")
	}

	i := 1
	for i < len(in) && isNameByte(in[i]) {
		i++
	}
	if i == len(in) && !s.ended {
		return 0, 0, ErrMoreInput // the name may continue
	}
	if got := mem.B(in[:i]); !got.Equal(want) {
		return 0, 0, s.failf(0, "unknown constant %q", got.StringCopy())
	}
	return tok, i, nil
}

// scanComment scans a line or block comment. A line comment includes
// its terminating newline, if present; a block comment includes its
// trailing "*/".
func (s *Scanner) scanComment() (Token, int, error) {
	in := s.buf[s.off:]
	if len(in) < 2 {
		if s.ended {
			return 0, 0, s.failf(1, "unexpected end of comment")
		}
		return 0, 0, ErrMoreInput
	}
	switch in[1] {
	case '/': // line comment to LF
		i := 2
		for i < len(in) && in[i] != '\n' {
			i++
		}
		if i < len(in) {
			i++ // include the newline
		} else if !s.ended {
			return 0, 0, ErrMoreInput
		}
		return LineComment, i, nil

	case '*': // block comment
		i := 2
		for {
			for i < len(in) && in[i] != '*' {
				i++
			}
			// Check whether we have "*/", which would end the comment.
			if i+1 >= len(in) {
				if s.ended {
					return 0, 0, s.errAt(len(in), "unterminated block comment")
				}
				return 0, 0, ErrMoreInput
			}
			if in[i+1] == '/' {
				return BlockComment, i + 2, nil
			}
			// We saw "*" but not "/", so keep scanning for the end of the block.
			i++
		}

	default:
		return 0, 0, s.failf(1, "invalid %q in comment", rune(in[1]))
	}
}

type posError struct {
	pos int
	err error
}

func (p posError) Error() string {
	return fmt.Sprintf("%s (offset %d)", p.err.Error(), p.pos)
}

func (p posError) Unwrap() error { return p.err }

func (s *Scanner) setErr(err error) error {
	s.err = err
	return err
}

// failf reports a lexical error at the given offset from the start of
// the current token.
func (s *Scanner) failf(at int, msg string, args ...any) error {
	return s.setErr(s.errAt(at, fmt.Sprintf(msg, args...)))
}

func (s *Scanner) errAt(at int, msg string) error {
	return posError{pos: s.base + s.off + at, err: errors.New(msg)}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\r' || ch == '\n' || ch == '\t'
}

func isNumStart(ch byte) bool { return ch == '-' || isDigit(ch) }
func isDigit(ch byte) bool    { return '0' <= ch && ch <= '9' }
func isNameByte(ch byte) bool { return ch >= 'a' && ch <= 'z' }

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// hasExtraLeadingZeroes reports whether the representation of an integer in
// buf has redundant leading zeroes, disallowed by the spec.
//
// OK: 0, 0.1, -1.0, -0.1 are all OK.
// Bad: -01, 01.2, -01.0, 00.1.
func hasExtraLeadingZeroes(buf []byte) bool {
	if buf[0] == '-' {
		buf = buf[1:] // skip leading sign
	}
	if buf[0] == '0' {
		// A leading zero is OK if it's the only digit.
		return len(buf) > 1
	}
	return false
}

var self = [...]Token{LBrace, RBrace, LSquare, RSquare, Comma, Colon}

func isSelfDelim(ch byte) bool { return strings.IndexByte("{}[],:", ch) >= 0 }

func selfDelim(ch byte) Token {
	if i := strings.IndexByte("{}[],:", ch); i >= 0 {
		return self[i]
	}
	return Invalid
}
