// Package envelope implements the Gordian Envelope document model
// consumed by the pattern matcher: a recursive tree whose leaves are
// deterministic-CBOR values and whose branches attach assertions
// (predicate-object pairs) to subjects.  Every part of an envelope is
// itself an envelope, and every envelope has a deterministic digest.
package envelope

import (
	"fmt"

	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/envelope/knownvalues"
)

// Kind discriminates the envelope cases.
type Kind int

const (
	KindLeaf Kind = iota
	KindKnownValue
	KindAssertion
	KindNode
	KindWrapped
	KindElided
	KindEncrypted
	KindCompressed
)

// Envelope is an immutable envelope tree node.  All mutating operations
// return new envelopes.
type Envelope struct {
	kind       Kind
	leaf       dcbor.Item
	known      uint64
	predicate  *Envelope
	object     *Envelope
	subject    *Envelope
	assertions []*Envelope
	content    *Envelope
	digest     Digest
}

// New builds a leaf envelope from a dCBOR item or a plain Go value
// (bool, integer, float, string, []byte).
func New(value interface{}) *Envelope {
	item := toItem(value)
	e := &Envelope{kind: KindLeaf, leaf: item}
	e.digest = computeDigest(e)
	return e
}

func toItem(value interface{}) dcbor.Item {
	switch v := value.(type) {
	case dcbor.Item:
		return v
	case bool:
		return dcbor.Bool{Value: v}
	case int:
		return dcbor.Int(int64(v))
	case int64:
		return dcbor.Int(v)
	case float64:
		return dcbor.Float(v)
	case string:
		return dcbor.Text{Value: v}
	case []byte:
		return dcbor.Bytes{Value: v}
	default:
		panic(fmt.Sprintf("cannot build a leaf from %T", value))
	}
}

// NewKnownValue builds a known-value envelope.
func NewKnownValue(value uint64) *Envelope {
	e := &Envelope{kind: KindKnownValue, known: value}
	e.digest = computeDigest(e)
	return e
}

// NewAssertion builds an assertion envelope from predicate and object
// values, which may be envelopes or leaf-able Go values.
func NewAssertion(predicate, object interface{}) *Envelope {
	e := &Envelope{
		kind:      KindAssertion,
		predicate: asEnvelope(predicate),
		object:    asEnvelope(object),
	}
	e.digest = computeDigest(e)
	return e
}

func asEnvelope(value interface{}) *Envelope {
	if e, ok := value.(*Envelope); ok {
		return e
	}
	return New(value)
}

// AddAssertion returns a new envelope with the assertion appended.  A
// non-Node envelope is promoted to a Node with itself as the subject.
func (e *Envelope) AddAssertion(predicate, object interface{}) *Envelope {
	assertion := NewAssertion(predicate, object)
	return e.addAssertionEnvelope(assertion)
}

func (e *Envelope) addAssertionEnvelope(assertion *Envelope) *Envelope {
	var subject *Envelope
	var existing []*Envelope
	if e.kind == KindNode {
		subject = e.subject
		existing = e.assertions
	} else {
		subject = e
	}
	node := &Envelope{
		kind:       KindNode,
		subject:    subject,
		assertions: append(append([]*Envelope{}, existing...), assertion),
	}
	node.digest = computeDigest(node)
	return node
}

// Wrap returns the envelope enclosed in a wrapping capsule.
func (e *Envelope) Wrap() *Envelope {
	w := &Envelope{kind: KindWrapped, content: e}
	w.digest = computeDigest(w)
	return w
}

// Elide returns an elided placeholder carrying this envelope's digest.
func (e *Envelope) Elide() *Envelope {
	return &Envelope{kind: KindElided, digest: e.digest}
}

// NewEncrypted returns an encrypted placeholder for the given digest.
// The model carries no ciphertext; obscured cases expose only digests.
func NewEncrypted(digest Digest) *Envelope {
	return &Envelope{kind: KindEncrypted, digest: digest}
}

// NewCompressed returns a compressed placeholder for the given digest.
func NewCompressed(digest Digest) *Envelope {
	return &Envelope{kind: KindCompressed, digest: digest}
}

// Kind returns the envelope case.
func (e *Envelope) Kind() Kind { return e.kind }

// Digest returns the envelope's deterministic digest.
func (e *Envelope) Digest() Digest { return e.digest }

// IsObscured reports whether the envelope is elided, encrypted or
// compressed.
func (e *Envelope) IsObscured() bool {
	switch e.kind {
	case KindElided, KindEncrypted, KindCompressed:
		return true
	}
	return false
}

// Leaf returns the dCBOR item of a Leaf envelope.
func (e *Envelope) Leaf() (dcbor.Item, bool) {
	if e.kind != KindLeaf {
		return nil, false
	}
	return e.leaf, true
}

// KnownValue returns the value of a KnownValue envelope.
func (e *Envelope) KnownValue() (uint64, bool) {
	if e.kind != KindKnownValue {
		return 0, false
	}
	return e.known, true
}

// Subject returns the subject of a Node, or the envelope itself for
// every other case.
func (e *Envelope) Subject() *Envelope {
	if e.kind == KindNode {
		return e.subject
	}
	return e
}

// Assertions returns the assertions of a Node in insertion order.
func (e *Envelope) Assertions() []*Envelope {
	if e.kind != KindNode {
		return nil
	}
	return e.assertions
}

// Predicate returns the predicate of an Assertion envelope.
func (e *Envelope) Predicate() (*Envelope, bool) {
	if e.kind != KindAssertion {
		return nil, false
	}
	return e.predicate, true
}

// Object returns the object of an Assertion envelope.
func (e *Envelope) Object() (*Envelope, bool) {
	if e.kind != KindAssertion {
		return nil, false
	}
	return e.object, true
}

// Unwrap returns the content of a Wrapped envelope.
func (e *Envelope) Unwrap() (*Envelope, bool) {
	if e.kind != KindWrapped {
		return nil, false
	}
	return e.content, true
}

// AsItem reconstructs a CBOR item for a Leaf or KnownValue envelope.
// Known values become tag-40000 items.
func (e *Envelope) AsItem() (dcbor.Item, bool) {
	switch e.kind {
	case KindLeaf:
		return e.leaf, true
	case KindKnownValue:
		return dcbor.Tagged{Tag: dcbor.TagKnownValue, Item: dcbor.Int(int64(e.known))}, true
	}
	return nil, false
}

// KnownValueName returns the registry name of a KnownValue envelope.
func (e *Envelope) KnownValueName() string {
	return knownvalues.Name(e.known)
}
