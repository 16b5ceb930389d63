// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

// Package jstream implements a non-blocking JSON decoder for input that
// arrives incrementally, as a sequence of byte chunks subject to flow
// control.
//
// # Decoding
//
// The Decoder type consumes chunks of a JSON document pushed by a
// demand-driven producer and builds a generic tree of objects, arrays,
// and scalars (see the tree package). The producer is represented by a
// ReadHandle; the decoder requests exactly one chunk at a time, so the
// producer never runs ahead of consumption:
//
//	d := jstream.NewDecoder()
//	d.OnInit(handle)          // requests the first chunk
//	d.OnDataAvailable(chunk)  // zero or more times, in order
//	d.OnDone()                // or d.OnError(err)
//
// None of the notification methods block. After each chunk the decoder
// consumes every token the buffered input yields and then requests one
// more chunk. The outcome resolves exactly once, to either the decoded
// tree or an error, and can be observed any number of times:
//
//	v, err := d.Wait(ctx)
//
// To decode from an io.Reader, the Decode and DecodeChunked functions
// wire up a chunked producer internally:
//
//	v, err := jstream.Decode(r)
//
// The result does not depend on how the input is split into chunks:
// chunk boundaries may fall anywhere, including in the middle of a
// token.
//
// # Scanning
//
// The Scanner type implements the underlying lexical scanner. Input is
// supplied with Feed, and End marks the end of input. Each call to Next
// advances to the next token, reports ErrMoreInput if the buffered
// input does not contain a complete token, or reports io.EOF once ended
// input is fully consumed:
//
//	s := jstream.NewScanner()
//	s.Feed(chunk)
//	for s.Next() == nil {
//	   log.Printf("Next token: %v", s.Token())
//	}
//
// # Streaming
//
// The Stream type sits between the two: it converts lexical tokens into
// structural events (BeginObject, Member, Value, ...), consuming the
// comma and colon separators and classifying strings as member keys or
// values by position. The Decoder validates each event against the set
// of events admissible at its position and folds it into the tree under
// construction.
package jstream
