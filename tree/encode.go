// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package tree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go4.org/mem"

	"github.com/entitystream/jstream/internal/escape"
)

// Write writes the compact JSON encoding of v to w.
func Write(w io.Writer, v Value) error {
	sw := stickyWriter{w: w}
	sw.value(v)
	return sw.err
}

// Format returns the compact JSON encoding of v as a string.
func Format(v Value) string {
	var sb strings.Builder
	Write(&sb, v) // strings.Builder does not fail
	return sb.String()
}

// A stickyWriter retains the first error of a sequence of writes and
// discards the rest.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) put(text string) {
	if s.err == nil {
		_, s.err = io.WriteString(s.w, text)
	}
}

func (s *stickyWriter) value(v Value) {
	switch t := v.(type) {
	case *Object:
		s.put("{")
		for i, m := range t.Members() {
			if i > 0 {
				s.put(",")
			}
			s.putString(m.Key)
			s.put(":")
			s.value(m.Value)
		}
		s.put("}")

	case *Array:
		s.put("[")
		for i, el := range t.Values {
			if i > 0 {
				s.put(",")
			}
			s.value(el)
		}
		s.put("]")

	case String:
		s.putString(string(t))

	case Int:
		s.put(strconv.FormatInt(int64(t), 10))

	case Long:
		s.put(strconv.FormatInt(int64(t), 10))

	case Float:
		s.put(strconv.FormatFloat(float64(t), 'g', -1, 32))

	case Double:
		s.put(strconv.FormatFloat(float64(t), 'g', -1, 64))

	case Bool:
		s.put(strconv.FormatBool(bool(t)))

	case Null:
		s.put("null")

	default:
		if s.err == nil {
			s.err = fmt.Errorf("unknown value type %T", v)
		}
	}
}

func (s *stickyWriter) putString(text string) {
	if s.err != nil {
		return
	}
	buf := make([]byte, 0, len(text)+2)
	buf = append(buf, '"')
	buf = append(buf, escape.Quote(mem.S(text))...)
	buf = append(buf, '"')
	_, s.err = s.w.Write(buf)
}
