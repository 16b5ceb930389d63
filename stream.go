// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream

import (
	"fmt"
	"strings"

	"go4.org/mem"

	"github.com/entitystream/jstream/internal/escape"
)

// An Event describes the structural role of the next item in a JSON
// document. Each event is a distinct bit so that an EventSet can name
// several admissible alternatives at once.
type Event byte

// Constants defining the valid Event values.
const (
	BeginObject Event = 1 << iota // "{" opening an object
	EndObject                     // "}" closing an object
	BeginArray                    // "[" opening an array
	EndArray                      // "]" closing an array
	Member                        // an object member key
	Value                         // a scalar value literal
)

// NoEvent is the zero Event, reported alongside a non-nil error.
const NoEvent Event = 0

var eventNames = []struct {
	ev   Event
	name string
}{
	{BeginObject, "begin-object"},
	{EndObject, "end-object"},
	{BeginArray, "begin-array"},
	{EndArray, "end-array"},
	{Member, "member-key"},
	{Value, "value"},
}

func (e Event) String() string {
	for _, en := range eventNames {
		if en.ev == e {
			return en.name
		}
	}
	return "invalid event"
}

// An EventSet is a set of Event values.
type EventSet byte

// Has reports whether e is a member of s.
func (s EventSet) Has(e Event) bool { return s&EventSet(e) != 0 }

// String renders the members of s joined by commas, in declaration
// order, or "no events" for the empty set.
func (s EventSet) String() string {
	if s == 0 {
		return "no events"
	}
	var parts []string
	for _, en := range eventNames {
		if s.Has(en.ev) {
			parts = append(parts, en.name)
		}
	}
	return strings.Join(parts, ", ")
}

// The grammatical position of a Stream between events. The position
// determines which tokens are structural events, which are separators
// to be consumed silently, and which are syntax errors.
type streamState byte

const (
	atTop      streamState = iota // at top level, before or after a document
	atObjKey                      // inside an object: expecting a key or "}"
	atObjKey2                     // inside an object, after ",": expecting a key
	atObjColon                    // after a member key: expecting ":"
	atObjValue                    // after ":": expecting a member value
	atObjNext                     // after a member value: expecting "," or "}"
	atArrFirst                    // after "[": expecting an element or "]"
	atArrValue                    // after ",": expecting an element
	atArrNext                     // after an element: expecting "," or "]"
)

// A Stream converts the lexical tokens of a Scanner into structural
// events. It consumes commas and colons, classifies strings as member
// keys or values by position, and skips comment tokens; brackets and
// value literals are forwarded as events. The stream tolerates input
// that arrives incrementally: Next reports ErrMoreInput whenever the
// underlying scanner is starved.
//
// A Stream validates only the placement of separators and member keys.
// Bracket pairing and the legality of each event is the consumer's
// concern; in particular a close bracket is forwarded as an event even
// when no matching container is open.
type Stream struct {
	sc   *Scanner
	ctx  []bool // open containers, innermost last; true = object
	st   streamState
	ev   Event
	name []byte // decoded member key
}

// NewStream constructs a new Stream with an empty scanner.
func NewStream() *Stream { return &Stream{sc: NewScanner()} }

// NewStreamWithScanner constructs a new Stream that consumes tokens from sc.
func NewStreamWithScanner(sc *Scanner) *Stream { return &Stream{sc: sc} }

// AllowComments configures the scanner associated with s to report (true) or
// reject (false) comment tokens. Comments are skipped by the stream.
func (s *Stream) AllowComments(ok bool) { s.sc.AllowComments(ok) }

// Feed appends a copy of chunk to the underlying scanner's buffer.
func (s *Stream) Feed(chunk []byte) { s.sc.Feed(chunk) }

// End informs the underlying scanner that no further input will ever
// arrive. The caller must drain the remaining events with Next.
func (s *Stream) End() { s.sc.End() }

// Next advances s to the next structural event, or reports an error.
// The error is ErrMoreInput if the buffered input is exhausted before a
// complete event, io.EOF when ended input is fully consumed, and
// otherwise a lexical or syntax error. Errors other than ErrMoreInput
// are terminal.
func (s *Stream) Next() (Event, error) {
	for {
		if err := s.sc.Next(); err != nil {
			return NoEvent, err
		}
		tok := s.sc.Token()
		if tok == LineComment || tok == BlockComment {
			continue
		}
		ev, err := s.apply(tok)
		if err != nil {
			return NoEvent, err
		}
		if ev == NoEvent {
			continue // a separator; no event to report
		}
		s.ev = ev
		return ev, nil
	}
}

// Event returns the current event.
func (s *Stream) Event() Event { return s.ev }

// Token returns the lexical token underlying the current event.
func (s *Stream) Token() Token { return s.sc.Token() }

// Text returns the undecoded text of the token underlying the current
// event. The same aliasing rules apply as for Scanner.Text.
func (s *Stream) Text() []byte { return s.sc.Text() }

// Name returns the decoded member key of the current Member event. The
// returned slice is only valid until the next call of Next or Feed.
func (s *Stream) Name() []byte { return s.name }

// Location returns the location of the token underlying the current
// event, or of the offending token after an error.
func (s *Stream) Location() Location { return s.sc.Location() }

// apply folds tok into the stream state, reporting the resulting event
// or NoEvent for a consumed separator.
func (s *Stream) apply(tok Token) (Event, error) {
	switch s.st {
	case atObjKey, atObjKey2:
		switch tok {
		case String:
			name, err := escape.Unquote(mem.B(trimQuotes(s.sc.Text())))
			if err != nil {
				return NoEvent, s.syntaxErrorf("invalid member key: %v", err)
			}
			s.name = name
			s.st = atObjColon
			return Member, nil
		case RBrace:
			if s.st == atObjKey2 {
				// A key is required after a comma.
				return NoEvent, s.syntaxErrorf("expected member key, got %v", tok)
			}
			return s.close(true), nil
		default:
			return NoEvent, s.syntaxErrorf(`expected member key or "}", got %v`, tok)
		}

	case atObjColon:
		if tok != Colon {
			return NoEvent, s.syntaxErrorf(`expected ":", got %v`, tok)
		}
		s.st = atObjValue
		return NoEvent, nil

	case atObjNext:
		switch tok {
		case Comma:
			s.st = atObjKey2
			return NoEvent, nil
		case RBrace:
			return s.close(true), nil
		default:
			return NoEvent, s.syntaxErrorf(`expected "," or "}", got %v`, tok)
		}

	case atArrNext:
		switch tok {
		case Comma:
			s.st = atArrValue
			return NoEvent, nil
		case RSquare:
			return s.close(false), nil
		default:
			return NoEvent, s.syntaxErrorf(`expected "," or "]", got %v`, tok)
		}

	case atArrFirst:
		if tok == RSquare {
			return s.close(false), nil
		}
		fallthrough

	default: // atTop, atObjValue, atArrValue: a value is admissible
		switch tok {
		case LBrace:
			s.ctx = append(s.ctx, true)
			s.st = atObjKey
			return BeginObject, nil
		case LSquare:
			s.ctx = append(s.ctx, false)
			s.st = atArrFirst
			return BeginArray, nil
		case Integer, Number, String, True, False, Null:
			s.afterValue()
			return Value, nil
		case RBrace:
			if s.st == atArrValue {
				return NoEvent, s.syntaxErrorf(`unexpected %v`, tok)
			}
			// Forwarded unconditionally; the consumer rejects a close
			// with no open object (or one interrupting a member value).
			return s.close(true), nil
		case RSquare:
			if s.st == atArrValue {
				// A trailing comma is not part of the grammar.
				return NoEvent, s.syntaxErrorf(`unexpected %v`, tok)
			}
			return s.close(false), nil
		default: // Comma, Colon
			return NoEvent, s.syntaxErrorf("unexpected %v", tok)
		}
	}
}

// close records the end of a container and reports the matching event.
// An unmatched close leaves the nesting context alone; the consumer is
// responsible for rejecting the event.
func (s *Stream) close(isObject bool) Event {
	if n := len(s.ctx); n > 0 && s.ctx[n-1] == isObject {
		s.ctx = s.ctx[:n-1]
		s.afterValue()
	} else {
		s.st = atTop
	}
	if isObject {
		return EndObject
	}
	return EndArray
}

// afterValue restores the state that follows a complete value in the
// innermost open container.
func (s *Stream) afterValue() {
	switch n := len(s.ctx); {
	case n == 0:
		s.st = atTop
	case s.ctx[n-1]:
		s.st = atObjNext
	default:
		s.st = atArrNext
	}
}

func (s *Stream) syntaxErrorf(msg string, args ...any) error {
	return &SyntaxError{
		Location: s.sc.Location().First,
		Message:  fmt.Sprintf(msg, args...),
	}
}

// trimQuotes removes the enclosing quotation marks of a string token.
func trimQuotes(text []byte) []byte { return text[1 : len(text)-1] }

// SyntaxError is the concrete type of errors reported by the stream for
// misplaced tokens.
type SyntaxError struct {
	Location LineCol
	Message  string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at %s: %s", s.Location, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }
