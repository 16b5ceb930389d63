// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"

	"github.com/entitystream/jstream"
	"github.com/entitystream/jstream/tree"
)

// A stubHandle records the demand signals issued by a decoder.
type stubHandle struct {
	requests int
	cancels  int
}

func (h *stubHandle) Request(n int) { h.requests += n }
func (h *stubHandle) Cancel()       { h.cancels++ }

// deliver pushes input to d in chunks of size bytes, honoring
// cancellation, and ends with OnDone.
func deliver(d *jstream.Decoder, h *stubHandle, input string, size int) {
	data := []byte(input)
	for len(data) > 0 && h.cancels == 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		d.OnDataAvailable(data[:n])
		data = data[n:]
	}
	if h.cancels == 0 {
		d.OnDone()
	}
}

func decodeString(t *testing.T, input string, size int) (tree.Value, error) {
	t.Helper()
	d := jstream.NewDecoder()
	h := &stubHandle{}
	d.OnInit(h)
	deliver(d, h, input, size)
	return d.Result()
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		input string
		want  string // compact re-encoding of the decoded tree
	}{
		{`{}`, `{}`},
		{`[]`, `[]`},
		{`{"a":15}`, `{"a":15}`},
		{`[1,2,3]`, `[1,2,3]`},
		{`{"a":1,"b":[1,2,3]}`, `{"a":1,"b":[1,2,3]}`},
		{`[[],{},[[0]]]`, `[[],{},[[0]]]`},
		{`{"x":null, "y":[true,false]}`, `{"x":null,"y":[true,false]}`},
		{`{"s":"a\tb","t":""}`, `{"s":"a\tb","t":""}`},
		{`[0.5, -6.25e2, 9223372036854775807, -15]`, `[0.5,-625,9223372036854775807,-15]`},
		{`{"nested":{"deep":{"deeper":[{"end":null}]}}}`, `{"nested":{"deep":{"deeper":[{"end":null}]}}}`},

		// Duplicate keys: the last value wins, and the member keeps its
		// original position.
		{`{"a":1,"a":2,"b":3}`, `{"a":2,"b":3}`},
		{`{"a":{"x":1},"b":2,"a":[3]}`, `{"a":[3],"b":2}`},

		// Whitespace everywhere.
		{" {\n \"a\" : [ 1 ,\t2 ] } ", `{"a":[1,2]}`},
	}

	for _, test := range tests {
		for size := 1; size <= len(test.input); size++ {
			v, err := decodeString(t, test.input, size)
			if err != nil {
				t.Errorf("Input: %#q (chunk size %d): decode failed: %v", test.input, size, err)
				continue
			}
			if got := tree.Format(v); got != test.want {
				t.Errorf("Input: %#q (chunk size %d): got %s, want %s", test.input, size, got, test.want)
			}
		}
	}
}

func TestChunkInvariance(t *testing.T) {
	const input = `{"a":1,"b":[1,2,3]}`
	const want = `{"a":1,"b":[1,2,3]}`

	// Split the document into two chunks at every possible byte
	// boundary; the result must never change.
	for i := 0; i <= len(input); i++ {
		d := jstream.NewDecoder()
		h := &stubHandle{}
		d.OnInit(h)
		d.OnDataAvailable([]byte(input[:i]))
		d.OnDataAvailable([]byte(input[i:]))
		d.OnDone()

		v, err := d.Result()
		if err != nil {
			t.Errorf("Split at %d: decode failed: %v", i, err)
			continue
		}
		if got := tree.Format(v); got != want {
			t.Errorf("Split at %d: got %s, want %s", i, got, want)
		}
	}
}

func TestDecoderTypes(t *testing.T) {
	v, err := decodeString(t, `{"i":21,"l":2147483648,"nl":-2147483649,"d":0.5,"s":"x","b":true,"n":null}`, 5)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	obj, ok := v.(*tree.Object)
	if !ok {
		t.Fatalf("Result: got %T, want *tree.Object", v)
	}

	tests := []struct {
		key  string
		want tree.Value
	}{
		{"i", tree.Int(21)},
		{"l", tree.Long(2147483648)},
		{"nl", tree.Long(-2147483649)},
		{"d", tree.Double(0.5)},
		{"s", tree.String("x")},
		{"b", tree.Bool(true)},
		{"n", tree.Null{}},
	}
	for _, test := range tests {
		m := obj.Find(test.key)
		if m == nil {
			t.Errorf("Key %q not found", test.key)
			continue
		}
		if diff := cmp.Diff(test.want, m.Value); diff != "" {
			t.Errorf("Key %q: (-want, +got)\n%s", test.key, diff)
		}
	}

	// Boundary values for the narrow integer kind.
	v, err = decodeString(t, `[2147483647,-2147483648]`, 1<<20)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	arr := v.(*tree.Array)
	if diff := cmp.Diff([]tree.Value{tree.Int(2147483647), tree.Int(-2147483648)}, arr.Values); diff != "" {
		t.Errorf("Values: (-want, +got)\n%s", diff)
	}
}

func TestDecoderErrors(t *testing.T) {
	structural := func(err error) bool {
		var serr *jstream.StructuralError
		return errors.As(err, &serr)
	}
	syntax := func(err error) bool {
		var serr *jstream.SyntaxError
		return errors.As(err, &serr)
	}
	truncated := func(err error) bool {
		return errors.Is(err, io.ErrUnexpectedEOF)
	}
	unsupported := func(err error) bool {
		return errors.Is(err, jstream.ErrUnsupportedNumber)
	}

	tests := []struct {
		input string
		check func(error) bool
		desc  string
	}{
		// Documents that end too soon.
		{``, truncated, "truncation"},
		{`{`, truncated, "truncation"},
		{`{"a":`, truncated, "truncation"},
		{`{"a"`, truncated, "truncation"},
		{`[1,2`, truncated, "truncation"},
		{`{"a":{"b":1}`, truncated, "truncation"},

		// Tokens outside the admissible set.
		{`}`, structural, "structural error"},
		{`]`, structural, "structural error"},
		{`{}}`, structural, "structural error"},
		{`[]]`, structural, "structural error"},
		{`{} {}`, structural, "structural error"},
		{`{} 5`, structural, "structural error"},
		{`5`, structural, "structural error"},
		{`"top"`, structural, "structural error"},
		{`{"a":}`, structural, "structural error"},
		{`[}`, structural, "structural error"},

		// Separator misuse is rejected below the validator.
		{`[1,]`, syntax, "syntax error"},
		{`{"a":1,}`, syntax, "syntax error"},
		{`{"a":1]`, syntax, "syntax error"},
		{`{1:2}`, syntax, "syntax error"},

		// Numeric literals beyond the supported kinds.
		{`[123456789012345678901234567890]`, unsupported, "unsupported number"},
		{`{"n":-99999999999999999999}`, unsupported, "unsupported number"},
	}

	for _, test := range tests {
		for _, size := range []int{1, 1 << 20} {
			_, err := decodeString(t, test.input, size)
			if err == nil {
				t.Errorf("Input: %#q (chunk size %d): decode did not fail", test.input, size)
				continue
			}
			if !test.check(err) {
				t.Errorf("Input: %#q (chunk size %d): got %v, want %s", test.input, size, err, test.desc)
			}
		}
	}
}

func TestStructuralErrorDetail(t *testing.T) {
	_, err := decodeString(t, `{}}`, 1<<20)
	var serr *jstream.StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("Decode: got %v, want a StructuralError", err)
	}
	if serr.Got != jstream.EndObject {
		t.Errorf("Got: %v, want %v", serr.Got, jstream.EndObject)
	}
	if serr.Expected != 0 {
		t.Errorf("Expected: %v, want the empty set", serr.Expected)
	}
	if want := "at 1:2: expecting no events, got end-object"; err.Error() != want {
		t.Errorf("Error: got %q, want %q", err.Error(), want)
	}
}

func TestBackpressure(t *testing.T) {
	const input = `{"a":1,"b":[1,2,3]}`

	// One request at initialization, then exactly one more per
	// starvation. Delivering n chunks starves the tokenizer n times:
	// once per chunk boundary, and once at the end of the last chunk.
	for _, size := range []int{1, 4, len(input)} {
		d := jstream.NewDecoder()
		h := &stubHandle{}
		d.OnInit(h)

		chunks := 0
		data := []byte(input)
		for len(data) > 0 {
			n := size
			if n > len(data) {
				n = len(data)
			}
			d.OnDataAvailable(data[:n])
			data = data[n:]
			chunks++
		}
		if want := chunks + 1; h.requests != want {
			t.Errorf("Chunk size %d: requests: got %d, want %d", size, h.requests, want)
		}
		d.OnDone()
		if _, err := d.Result(); err != nil {
			t.Errorf("Chunk size %d: decode failed: %v", size, err)
		}
		if h.cancels != 0 {
			t.Errorf("Chunk size %d: cancels: got %d, want 0", size, h.cancels)
		}
	}
}

func TestCancelOnFailure(t *testing.T) {
	d := jstream.NewDecoder()
	h := &stubHandle{}
	d.OnInit(h)
	d.OnDataAvailable([]byte(`{]`))

	if h.cancels != 1 {
		t.Fatalf("Cancels: got %d, want 1", h.cancels)
	}
	_, err := d.Result()
	if err == nil {
		t.Fatal("Result: got nil, want an error")
	}

	// A terminal decoder issues no further demand or cancellation, and
	// late deliveries do not disturb the outcome.
	requests := h.requests
	d.OnDataAvailable([]byte(`ignored`))
	d.OnDone()
	if h.requests != requests || h.cancels != 1 {
		t.Errorf("After terminal: requests %d cancels %d, want %d and 1", h.requests, h.cancels, requests)
	}
	if _, err2 := d.Result(); !errors.Is(err2, err) {
		t.Errorf("Result changed after terminal: got %v, want %v", err2, err)
	}
}

func TestUpstreamError(t *testing.T) {
	d := jstream.NewDecoder()
	h := &stubHandle{}
	d.OnInit(h)
	d.OnDataAvailable([]byte(`{"a":`))

	cause := errors.New("connection reset")
	d.OnError(cause)

	if _, err := d.Result(); !errors.Is(err, cause) {
		t.Errorf("Result: got %v, want %v", err, cause)
	}
	// The producer failed on its own; the decoder must not cancel it.
	if h.cancels != 0 {
		t.Errorf("Cancels: got %d, want 0", h.cancels)
	}
}

func TestResultLifecycle(t *testing.T) {
	d := jstream.NewDecoder()
	h := &stubHandle{}
	d.OnInit(h)

	if _, err := d.Result(); !errors.Is(err, jstream.ErrPending) {
		t.Errorf("Result before completion: got %v, want %v", err, jstream.ErrPending)
	}
	select {
	case <-d.Done():
		t.Error("Done closed before completion")
	default:
	}

	deliver(d, h, `{"ok":true}`, 3)

	<-d.Done() // closed exactly at completion
	v1, err1 := d.Result()
	v2, err2 := d.Result()
	if err1 != nil || err2 != nil {
		t.Fatalf("Result failed: %v / %v", err1, err2)
	}
	if v1 != v2 {
		t.Errorf("Result not stable: %v vs %v", v1, v2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if v, err := d.Wait(ctx); err != nil || v != v1 {
		t.Errorf("Wait: got %v, %v; want %v, nil", v, err, v1)
	}
}

func TestWaitCanceled(t *testing.T) {
	d := jstream.NewDecoder()
	d.OnInit(&stubHandle{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait: got %v, want %v", err, context.Canceled)
	}
}

func TestInitTwicePanics(t *testing.T) {
	d := jstream.NewDecoder()
	d.OnInit(&stubHandle{})
	mtest.MustPanic(t, func() { d.OnInit(&stubHandle{}) })
}

func TestDecoderComments(t *testing.T) {
	const input = `{
  "a": 1, // a member
  /* another one */
  "b": [2]
}`
	d := jstream.NewDecoder()
	d.AllowComments(true)
	h := &stubHandle{}
	d.OnInit(h)
	deliver(d, h, input, 4)

	v, err := d.Result()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got, want := tree.Format(v), `{"a":1,"b":[2]}`; got != want {
		t.Errorf("Result: got %s, want %s", got, want)
	}
}

func TestDecodeReader(t *testing.T) {
	const input = `{"a":1,"b":[1,2,3],"c":"d"}`

	v, err := jstream.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := tree.Format(v); got != input {
		t.Errorf("Decode: got %s, want %s", got, input)
	}

	for _, size := range []int{1, 2, 7} {
		v, err := jstream.DecodeChunked(strings.NewReader(input), size)
		if err != nil {
			t.Fatalf("DecodeChunked(%d) failed: %v", size, err)
		}
		if got := tree.Format(v); got != input {
			t.Errorf("DecodeChunked(%d): got %s, want %s", size, got, input)
		}
	}
}

// A flakyReader fails with err after its input is exhausted.
type flakyReader struct {
	io.Reader
	err error
}

func (f *flakyReader) Read(p []byte) (int, error) {
	n, err := f.Reader.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func TestDecodeReaderError(t *testing.T) {
	cause := errors.New("device on fire")
	r := &flakyReader{Reader: strings.NewReader(`{"a":`), err: cause}
	if _, err := jstream.Decode(r); !errors.Is(err, cause) {
		t.Errorf("Decode: got %v, want %v", err, cause)
	}
}
