// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream

import (
	"io"

	"github.com/entitystream/jstream/tree"
)

// DefaultChunkSize is the chunk size used by Decode.
const DefaultChunkSize = 4096

// A chunkSource adapts an io.Reader into a demand-driven chunk
// producer: each unit of demand delivers at most one chunk of up to
// size bytes. Delivery is strictly sequential and stops as soon as the
// decoder cancels.
type chunkSource struct {
	r      io.Reader
	size   int
	demand int  // chunks requested but not yet delivered
	stop   bool // the decoder canceled
}

// Request satisfies ReadHandle. Demand is accumulated; delivery happens
// in the pump loop, so a Request issued from inside a decoder
// notification does not recurse.
func (s *chunkSource) Request(n int) { s.demand += n }

// Cancel satisfies ReadHandle.
func (s *chunkSource) Cancel() { s.stop = true }

// run drives d to a terminal state: it attaches itself, then delivers
// chunks while demand is outstanding, ending with OnDone or OnError.
func (s *chunkSource) run(d *Decoder) {
	d.OnInit(s)
	buf := make([]byte, s.size)
	for !s.stop && s.demand > 0 {
		n, err := s.r.Read(buf)
		if n > 0 {
			s.demand--
			d.OnDataAvailable(buf[:n])
		}
		if err == io.EOF {
			if !s.stop {
				d.OnDone()
			}
			return
		}
		if err != nil {
			if !s.stop {
				d.OnError(err)
			}
			return
		}
	}
}

// Decode decodes a single JSON document from r, delivering the input to
// an incremental decoder in chunks of DefaultChunkSize bytes.
func Decode(r io.Reader) (tree.Value, error) {
	return DecodeChunked(r, DefaultChunkSize)
}

// DecodeChunked is Decode with an explicit chunk size. The result does
// not depend on the chunk size; a size of 1 delivers the input one byte
// at a time.
func DecodeChunked(r io.Reader, size int) (tree.Value, error) {
	if size < 1 {
		size = DefaultChunkSize
	}
	d := NewDecoder()
	src := &chunkSource{r: r, size: size}
	src.run(d)
	return d.Result()
}
