// Package knownvalues is a read-only registry mapping well-known
// envelope values to their human names.
package knownvalues

import "strconv"

var byValue = map[uint64]string{}
var byName = map[string]uint64{}

func register(value uint64, name string) {
	byValue[value] = name
	byName[name] = value
}

func init() {
	register(1, "isA")
	register(2, "id")
	register(3, "signed")
	register(4, "note")
	register(5, "hasRecipient")
	register(6, "sskrShare")
	register(7, "controller")
	register(8, "key")
	register(9, "dereferenceVia")
	register(10, "entity")
	register(11, "name")
	register(12, "language")
	register(13, "issuer")
	register(14, "holder")
	register(15, "salt")
	register(16, "date")
	register(17, "unknown")
	register(18, "diffEdits")
	register(19, "attachment")
	register(20, "vendor")
	register(21, "conformsTo")
}

// Name returns the registered name for a value, or its decimal
// rendering when the value has no name.
func Name(value uint64) string {
	if name, ok := byValue[value]; ok {
		return name
	}
	return strconv.FormatUint(value, 10)
}

// HasName reports whether the value has a registered name.
func HasName(value uint64) bool {
	_, ok := byValue[value]
	return ok
}

// Value resolves a name (or decimal string) back to a value.
func Value(name string) (uint64, bool) {
	if v, ok := byName[name]; ok {
		return v, true
	}
	if v, err := strconv.ParseUint(name, 10, 64); err == nil {
		return v, true
	}
	return 0, false
}
