// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A Pointer addresses a single value inside a document, as a sequence
// of member keys and array indices from the root. The string form
// follows RFC 6901: tokens separated by "/", with "~0" and "~1"
// standing for literal "~" and "/" inside a token.
type Pointer []string

// ParsePointer parses s as a Pointer. The empty string addresses the
// root; any other pointer must begin with "/".
func ParsePointer(s string) (Pointer, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, errors.New("pointer must begin with /")
	}
	toks := strings.Split(s[1:], "/")
	for i, tok := range toks {
		tok = strings.ReplaceAll(tok, "~1", "/")
		toks[i] = strings.ReplaceAll(tok, "~0", "~")
	}
	return Pointer(toks), nil
}

func (p Pointer) String() string {
	var sb strings.Builder
	for _, tok := range p {
		tok = strings.ReplaceAll(tok, "~", "~0")
		tok = strings.ReplaceAll(tok, "/", "~1")
		sb.WriteString("/")
		sb.WriteString(tok)
	}
	return sb.String()
}

// Eval resolves p against root and returns the addressed value.
// It reports an error if any step of the pointer does not exist or
// traverses a scalar.
func (p Pointer) Eval(root Value) (Value, error) {
	cur := root
	for i, tok := range p {
		switch t := cur.(type) {
		case *Object:
			m := t.Find(tok)
			if m == nil {
				return nil, fmt.Errorf("%s: no such member", Pointer(p[:i+1]))
			}
			cur = m.Value

		case *Array:
			n, err := strconv.Atoi(tok)
			if err != nil || n < 0 || n >= t.Len() {
				return nil, fmt.Errorf("%s: no such element", Pointer(p[:i+1]))
			}
			cur = t.Values[n]

		default:
			return nil, fmt.Errorf("%s: cannot traverse %s", Pointer(p[:i]), cur.Kind())
		}
	}
	return cur, nil
}

// Eval is shorthand for parsing ptr and resolving it against root.
func Eval(root Value, ptr string) (Value, error) {
	p, err := ParsePointer(ptr)
	if err != nil {
		return nil, err
	}
	return p.Eval(root)
}
