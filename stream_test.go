// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream_test

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/entitystream/jstream"
)

// streamAll feeds input to a Stream in chunks of size bytes and renders
// each event as a line of text.
func streamAll(t *testing.T, input string, size int) ([]string, error) {
	t.Helper()
	s := jstream.NewStream()

	var got []string
	rest := []byte(input)
	for {
		ev, err := s.Next()
		switch {
		case err == jstream.ErrMoreInput:
			if len(rest) == 0 {
				s.End()
				continue
			}
			n := size
			if n > len(rest) {
				n = len(rest)
			}
			s.Feed(rest[:n])
			rest = rest[n:]
			continue
		case err == io.EOF:
			return got, nil
		case err != nil:
			return got, err
		}
		switch ev {
		case jstream.Member:
			got = append(got, fmt.Sprintf("%v <%s>", ev, s.Name()))
		case jstream.Value:
			got = append(got, fmt.Sprintf("%v %v <%s>", ev, s.Token(), s.Text()))
		default:
			got = append(got, ev.String())
		}
	}
}

func TestStream(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},

		{`{}`, "begin-object\nend-object"},
		{`[]`, "begin-array\nend-array"},

		{`{"a":15}`, `
begin-object
member-key <a>
value integer <15>
end-object`},

		{`{"x":null, "y":[true]}`, `
begin-object
member-key <x>
value null <null>
member-key <y>
begin-array
value true <true>
end-array
end-object`},

		// Member keys are decoded; string values are reported verbatim.
		{`{"a\tb":"c\td"}`, `
begin-object
member-key <a	b>
value string <"c\td">
end-object`},

		{`[[],{},[[0]]]`, `
begin-array
begin-array
end-array
begin-object
end-object
begin-array
begin-array
value integer <0>
end-array
end-array
end-array`},

		// Scalars at top level are reported; their legality is the
		// consumer's concern.
		{`true`, "value true <true>"},
		{`"a" 5`, "value string <\"a\">\nvalue integer <5>"},

		// Unmatched closes are forwarded, not rejected here.
		{`{}}`, "begin-object\nend-object\nend-object"},
		{`]`, "end-array"},
	}

	for _, test := range tests {
		for _, size := range []int{1, 4, 1 << 20} {
			got, err := streamAll(t, test.input, size)
			if err != nil {
				t.Errorf("Input: %#q (chunk size %d): Next failed: %v", test.input, size, err)
			}
			want := strings.Split(strings.TrimSpace(test.want), "\n")
			if test.want == "" {
				want = nil
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Input: %#q (chunk size %d)\nEvents: (-want, +got)\n%s", test.input, size, diff)
			}
		}
	}
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		// Broken object syntax.
		{`{false:1}`, `at 1:1: expected member key or "}", got false`},
		{`{"a" 1}`, `at 1:5: expected ":", got integer`},
		{`{"a":1 "b":2}`, `at 1:7: expected "," or "}", got string`},
		{`{"a":1,}`, `at 1:7: expected member key, got "}"`},
		{`{"a":1,,`, `at 1:7: expected member key or "}", got ","`},

		// Broken array syntax.
		{`[1 2]`, `at 1:3: expected "," or "]", got integer`},
		{`[1,]`, `at 1:3: unexpected "]"`},
		{`[,`, `at 1:1: unexpected ","`},

		// Misplaced separators at top level.
		{`,`, `at 1:0: unexpected ","`},
		{`:`, `at 1:0: unexpected ":"`},
		{`{} ,`, `at 1:3: unexpected ","`},
	}

	for _, test := range tests {
		for _, size := range []int{1, 1 << 20} {
			_, err := streamAll(t, test.input, size)
			if err == nil {
				t.Errorf("Input: %#q: Next did not report an error", test.input)
				continue
			}
			var serr *jstream.SyntaxError
			if !errors.As(err, &serr) {
				t.Errorf("Input: %#q: error %v is not a SyntaxError", test.input, err)
			}
			if diff := cmp.Diff(test.want, err.Error()); diff != "" {
				t.Errorf("Input: %#q\nError: (-want, +got)\n%s", test.input, diff)
			}
		}
	}
}
