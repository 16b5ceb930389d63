// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

package jstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"go4.org/mem"

	"github.com/entitystream/jstream/internal/escape"
	"github.com/entitystream/jstream/tree"
)

// A ReadHandle is the demand-signaling side of an upstream chunk
// producer. The decoder requests one chunk at a time and cancels the
// producer when decoding fails.
type ReadHandle interface {
	// Request asks the producer to deliver n more chunks.
	Request(n int)

	// Cancel tells the producer to stop delivering chunks.
	Cancel()
}

// The sets of events admissible at each point of a decode.  Which set
// is current is fully determined by the innermost open container and
// whether a member key is pending.
const (
	wantTopValue = EventSet(BeginObject | BeginArray)         // nothing opened yet
	wantMember   = EventSet(Member | EndObject)               // inside an object
	wantValue    = EventSet(Value | BeginObject | BeginArray) // a value is due
	wantElement  = wantValue | EventSet(EndArray)             // inside an array
)

// ErrUnsupportedNumber is reported when a numeric literal cannot be
// represented by the supported numeric kinds, such as an integer that
// does not fit in 64 bits. It is never approximated.
var ErrUnsupportedNumber = errors.New("unsupported numeric representation")

// ErrPending is reported by Result while the decode has not yet reached
// a terminal state.
var ErrPending = errors.New("decode still in progress")

// A StructuralError reports a structural event that is not admissible
// at its position in the document.
type StructuralError struct {
	Expected EventSet // the events that were admissible
	Got      Event    // the event encountered
	Location LineCol  // position of the offending token
}

// Error satisfies the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("at %s: expecting %s, got %s", e.Location, e.Expected, e.Got)
}

// A Decoder incrementally decodes one JSON document, delivered as a
// sequence of byte chunks, into a tree.Value. The decoder never blocks
// and never reads ahead: it requests exactly one chunk from its
// ReadHandle whenever the buffered input is exhausted, and cancels the
// producer as soon as decoding fails.
//
// The owner of the upstream source drives the decoder through OnInit,
// OnDataAvailable, OnDone, and OnError. Notifications must be delivered
// one at a time, in order; the decoder performs no locking of its own.
// The outcome is observed through Done, Result, or Wait, and is
// resolved exactly once.
type Decoder struct {
	st *Stream
	rh ReadHandle

	stack  []tree.Value // open containers, innermost last
	isList bool         // the innermost open container is an array
	field  []byte       // pending member key
	expect EventSet

	result tree.Value // the completed top-level container

	done chan struct{}
	val  tree.Value
	err  error
}

// NewDecoder constructs a Decoder ready to receive input.
func NewDecoder() *Decoder {
	return &Decoder{
		st:     NewStream(),
		expect: wantTopValue,
		done:   make(chan struct{}),
	}
}

// AllowComments configures the decoder to accept (true) or reject
// (false) comments in the input. Comments are discarded.
func (d *Decoder) AllowComments(ok bool) { d.st.AllowComments(ok) }

// OnInit attaches the upstream read handle and requests the first
// chunk. It must be called exactly once, before any other notification.
func (d *Decoder) OnInit(rh ReadHandle) {
	if d.rh != nil {
		panic("jstream: decoder already initialized")
	}
	d.rh = rh
	d.rh.Request(1)
}

// OnDataAvailable delivers the next chunk of input. The decoder
// consumes every token the buffered input yields and then either
// requests one more chunk or resolves the outcome. The chunk is copied;
// the caller may reuse it.
func (d *Decoder) OnDataAvailable(chunk []byte) {
	if d.terminal() {
		return
	}
	d.st.Feed(chunk)
	d.drain()
}

// OnDone delivers the end-of-input signal. Any token the tokenizer had
// buffered but not yet emitted is drained once more, and the outcome is
// resolved: the completed tree if the document closed cleanly, a
// truncation error otherwise.
func (d *Decoder) OnDone() {
	if d.terminal() {
		return
	}
	d.st.End()
	d.drain()
	if d.terminal() {
		return // the final drain failed
	}
	if len(d.stack) != 0 || d.result == nil {
		d.fail(fmt.Errorf("at %s: unexpected end of input: %w",
			d.st.Location().First, io.ErrUnexpectedEOF))
		return
	}
	d.resolve(d.result, nil)
}

// OnError delivers a failure of the upstream source. The error is
// passed through to the result as-is; the producer has already stopped,
// so no cancellation is issued.
func (d *Decoder) OnError(err error) {
	if d.terminal() {
		return
	}
	d.resolve(nil, err)
}

// drain folds buffered tokens into the tree until the input is
// exhausted or the decode fails. On starvation it requests exactly one
// more chunk and returns.
func (d *Decoder) drain() {
	for {
		ev, err := d.st.Next()
		switch {
		case err == ErrMoreInput:
			d.rh.Request(1)
			return
		case err == io.EOF:
			return // OnDone decides the outcome
		case err != nil:
			d.fail(err)
			return
		}
		if err := d.apply(ev); err != nil {
			d.fail(err)
			return
		}
	}
}

// apply validates ev against the currently admissible set and folds it
// into the partially built tree.
func (d *Decoder) apply(ev Event) error {
	if !d.expect.Has(ev) {
		return &StructuralError{
			Expected: d.expect,
			Got:      ev,
			Location: d.st.Location().First,
		}
	}
	switch ev {
	case BeginObject:
		d.push(tree.NewObject(), false)
	case BeginArray:
		d.push(new(tree.Array), true)
	case EndObject, EndArray:
		d.pop()
	case Member:
		d.field = append(d.field[:0], d.st.Name()...)
		d.expect = wantValue
	case Value:
		v, err := d.scalar()
		if err != nil {
			return err
		}
		d.attach(v)
	}
	return nil
}

// push attaches a new empty container as a value of the innermost open
// container and makes it the new innermost.
func (d *Decoder) push(c tree.Value, isList bool) {
	d.attach(c)
	d.stack = append(d.stack, c)
	d.isList = isList
	d.updateExpect()
}

// pop closes the innermost open container. Popping the last container
// completes the document: its value becomes the result and no further
// events are admissible.
func (d *Decoder) pop() {
	if len(d.stack) == 0 {
		// Validation admits a close only while a container is open.
		panic("jstream: pop of empty container stack")
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if len(d.stack) == 0 {
		d.result = top
		d.expect = 0
	} else {
		_, d.isList = d.stack[len(d.stack)-1].(*tree.Array)
		d.updateExpect()
	}
}

// attach adds v to the innermost open container: appended to an array,
// or stored under the pending member key of an object. The very first
// container of a document has no parent and is not attached anywhere.
func (d *Decoder) attach(v tree.Value) {
	if len(d.stack) == 0 {
		return
	}
	if d.isList {
		d.stack[len(d.stack)-1].(*tree.Array).Append(v)
	} else {
		d.stack[len(d.stack)-1].(*tree.Object).Set(string(d.field), v)
	}
	d.updateExpect()
}

func (d *Decoder) updateExpect() {
	if d.isList {
		d.expect = wantElement
	} else {
		d.expect = wantMember
	}
}

// scalar converts the literal underlying the current Value event into
// its tree representation. Integer literals take the narrowest of the
// supported integer kinds that can hold them exactly; literals that fit
// neither report ErrUnsupportedNumber.
func (d *Decoder) scalar() (tree.Value, error) {
	text := d.st.Text()
	switch tok := d.st.Token(); tok {
	case String:
		dec, err := escape.Unquote(mem.B(trimQuotes(text)))
		if err != nil {
			return nil, fmt.Errorf("at %s: invalid string: %w", d.st.Location().First, err)
		}
		return tree.String(dec), nil

	case Integer:
		n, err := strconv.ParseInt(string(text), 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("at %s: %q: %w", d.st.Location().First, text, ErrUnsupportedNumber)
			}
			return nil, err
		}
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return tree.Int(n), nil
		}
		return tree.Long(n), nil

	case Number:
		// An out-of-range literal saturates to an infinity, per the
		// usual semantics of double-precision conversion.
		f, err := strconv.ParseFloat(string(text), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, err
		}
		return tree.Double(f), nil

	case True:
		return tree.Bool(true), nil
	case False:
		return tree.Bool(false), nil
	case Null:
		return tree.Null{}, nil
	default:
		return nil, fmt.Errorf("at %s: unknown value %v", d.st.Location().First, tok)
	}
}

// fail cancels the upstream producer, then resolves the outcome to err.
// Cancellation strictly precedes resolution so that a producer that
// reacts to the result cannot deliver another chunk first.
func (d *Decoder) fail(err error) {
	if d.rh != nil {
		d.rh.Cancel()
	}
	d.resolve(nil, err)
}

// resolve assigns the terminal outcome. The outcome is single
// assignment: resolving a decoder twice is a defect in the caller's
// delivery discipline, not a recoverable condition.
func (d *Decoder) resolve(v tree.Value, err error) {
	if d.terminal() {
		panic("jstream: result already resolved")
	}
	d.val, d.err = v, err
	close(d.done)
}

func (d *Decoder) terminal() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the decode reaches its
// terminal state.
func (d *Decoder) Done() <-chan struct{} { return d.done }

// Result returns the decoded tree or the error the decode failed with.
// Before the decode completes, Result reports ErrPending. After
// completion it returns the same outcome on every call.
func (d *Decoder) Result() (tree.Value, error) {
	if !d.terminal() {
		return nil, ErrPending
	}
	return d.val, d.err
}

// Wait blocks until the decode completes or ctx ends, and returns the
// outcome.
func (d *Decoder) Wait(ctx context.Context) (tree.Value, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.done:
		return d.val, d.err
	}
}
