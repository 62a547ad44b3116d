package envelope

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/clarete/patex/dcbor"
)

// Digest identifies an envelope.  Equal trees have equal digests;
// assertion order within a node does not affect the node digest.
type Digest [sha256.Size]byte

// Hex returns the full digest in lowercase hex.
func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

// ShortHex returns the 8-hex-digit prefix used in path rendering.
func (d Digest) ShortHex() string { return d.Hex()[:8] }

// Domain-separation prefixes, one per envelope case that hashes
// structurally rather than carrying a foreign digest.
const (
	domainLeaf       = 0x01
	domainKnownValue = 0x02
	domainAssertion  = 0x03
	domainNode       = 0x04
	domainWrapped    = 0x05
)

func computeDigest(e *Envelope) Digest {
	h := sha256.New()
	switch e.kind {
	case KindLeaf:
		h.Write([]byte{domainLeaf})
		enc, err := dcbor.Encode(e.leaf)
		if err != nil {
			// A leaf that cannot encode still needs a stable
			// digest; fall back to its notation.
			enc = []byte(e.leaf.Diagnostic())
		}
		h.Write(enc)
	case KindKnownValue:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], e.known)
		h.Write([]byte{domainKnownValue})
		h.Write(buf[:])
	case KindAssertion:
		h.Write([]byte{domainAssertion})
		h.Write(e.predicate.digest[:])
		h.Write(e.object.digest[:])
	case KindNode:
		h.Write([]byte{domainNode})
		h.Write(e.subject.digest[:])
		digests := make([]Digest, len(e.assertions))
		for i, a := range e.assertions {
			digests[i] = a.digest
		}
		sort.Slice(digests, func(i, j int) bool {
			for k := range digests[i] {
				if digests[i][k] != digests[j][k] {
					return digests[i][k] < digests[j][k]
				}
			}
			return false
		})
		for _, d := range digests {
			h.Write(d[:])
		}
	case KindWrapped:
		h.Write([]byte{domainWrapped})
		h.Write(e.content.digest[:])
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
