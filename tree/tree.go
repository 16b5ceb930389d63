// Copyright (C) 2024 The jstream Authors. All Rights Reserved.

// Package tree defines a generic in-memory representation of JSON-like
// documents: objects with insertion-ordered unique keys, arrays, and
// typed scalar values.
package tree

// A Value is one node of a document: an object, an array, or a scalar.
type Value interface{ Kind() Kind }

// A Kind distinguishes the concrete types of a Value.
type Kind byte

// Constants defining the valid Kind values.
const (
	InvalidKind Kind = iota
	ObjectKind       // *Object
	ArrayKind        // *Array
	StringKind       // String
	IntKind          // Int
	LongKind         // Long
	FloatKind        // Float
	DoubleKind       // Double
	BoolKind         // Bool
	NullKind         // Null
)

var kindStr = [...]string{
	InvalidKind: "invalid",
	ObjectKind:  "object",
	ArrayKind:   "array",
	StringKind:  "string",
	IntKind:     "int",
	LongKind:    "long",
	FloatKind:   "float",
	DoubleKind:  "double",
	BoolKind:    "bool",
	NullKind:    "null",
}

func (k Kind) String() string {
	if int(k) >= len(kindStr) {
		return kindStr[InvalidKind]
	}
	return kindStr[k]
}

// An Object is a collection of key-value members. Members preserve the
// order in which their keys were first set, and keys are unique:
// setting a key that is already present replaces its value in place.
//
// The zero Object is not ready for use; construct objects with
// NewObject.
type Object struct {
	members []*Member
	index   map[string]int
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// NewObject constructs an empty Object.
func NewObject() *Object { return &Object{index: make(map[string]int)} }

// Kind satisfies the Value interface.
func (o *Object) Kind() Kind { return ObjectKind }

// Len reports the number of members of o.
func (o *Object) Len() int { return len(o.members) }

// Set stores v under key. If key is already present its value is
// replaced and the member keeps its original position; otherwise the
// member is appended.
func (o *Object) Set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.members[i].Value = v
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, &Member{Key: key, Value: v})
}

// Find returns the member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	if i, ok := o.index[key]; ok {
		return o.members[i]
	}
	return nil
}

// Members returns the members of o in insertion order. The slice is
// shared with o and must not be modified.
func (o *Object) Members() []*Member { return o.members }

// Keys returns the keys of o in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.members))
	for i, m := range o.members {
		keys[i] = m.Key
	}
	return keys
}

// An Array is an ordered sequence of values.
type Array struct {
	Values []Value
}

// Kind satisfies the Value interface.
func (a *Array) Kind() Kind { return ArrayKind }

// Len reports the number of elements of a.
func (a *Array) Len() int { return len(a.Values) }

// Append appends v to a.
func (a *Array) Append(v Value) { a.Values = append(a.Values, v) }

// A String is a string value, with escape sequences already decoded.
type String string

// Kind satisfies the Value interface.
func (String) Kind() Kind { return StringKind }

// An Int is an integer value representable in 32 bits.
type Int int32

// Kind satisfies the Value interface.
func (Int) Kind() Kind { return IntKind }

// A Long is an integer value requiring up to 64 bits.
type Long int64

// Kind satisfies the Value interface.
func (Long) Kind() Kind { return LongKind }

// A Float is a single-precision floating-point value.
type Float float32

// Kind satisfies the Value interface.
func (Float) Kind() Kind { return FloatKind }

// A Double is a double-precision floating-point value.
type Double float64

// Kind satisfies the Value interface.
func (Double) Kind() Kind { return DoubleKind }

// A Bool is a Boolean value.
type Bool bool

// Kind satisfies the Value interface.
func (Bool) Kind() Kind { return BoolKind }

// Null is the null value.
type Null struct{}

// Kind satisfies the Value interface.
func (Null) Kind() Kind { return NullKind }
