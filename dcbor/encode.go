package dcbor

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	if encMode, err = opts.EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(err)
	}
}

// Encode serializes the item with the core deterministic encoding
// rules, so equal items always produce equal bytes.
func Encode(item Item) ([]byte, error) {
	v, err := toGo(item)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// Equal compares two items by their deterministic encodings.
func Equal(a, b Item) bool {
	ea, errA := Encode(a)
	eb, errB := Encode(b)
	if errA != nil || errB != nil {
		return a.Diagnostic() == b.Diagnostic()
	}
	return bytes.Equal(ea, eb)
}

// Decode parses deterministically encoded CBOR bytes into an Item.
func Decode(data []byte) (Item, error) {
	var v interface{}
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromGo(v)
}

func toGo(item Item) (interface{}, error) {
	switch it := item.(type) {
	case Bool:
		return it.Value, nil
	case Number:
		if it.IsFloat {
			// Integral floats collapse to integers on the wire.
			if it.Float == math.Trunc(it.Float) && !math.IsInf(it.Float, 0) &&
				math.Abs(it.Float) <= math.MaxInt64 {
				return int64(it.Float), nil
			}
			return it.Float, nil
		}
		return it.Int, nil
	case Text:
		return it.Value, nil
	case Bytes:
		return it.Value, nil
	case Null:
		return nil, nil
	case Array:
		out := make([]interface{}, len(it.Items))
		for i, sub := range it.Items {
			v, err := toGo(sub)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case Map:
		out := make(map[interface{}]interface{}, len(it.Entries))
		for _, e := range it.Entries {
			k, err := toGo(e.Key)
			if err != nil {
				return nil, err
			}
			switch k.(type) {
			case string, int64, float64, bool:
			default:
				return nil, fmt.Errorf("unsupported map key kind %s", e.Key.Kind())
			}
			v, err := toGo(e.Value)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case Tagged:
		content, err := toGo(it.Item)
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: it.Tag, Content: content}, nil
	}
	return nil, fmt.Errorf("unknown item type %T", item)
}

func fromGo(v interface{}) (Item, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool{Value: val}, nil
	case uint64:
		if val > math.MaxInt64 {
			return Float(float64(val)), nil
		}
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case string:
		return Text{Value: val}, nil
	case []byte:
		return Bytes{Value: val}, nil
	case []interface{}:
		items := make([]Item, len(val))
		for i, sub := range val {
			item, err := fromGo(sub)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return Array{Items: items}, nil
	case map[interface{}]interface{}:
		entries := make([]MapEntry, 0, len(val))
		for k, sub := range val {
			key, err := fromGo(k)
			if err != nil {
				return nil, err
			}
			value, err := fromGo(sub)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: key, Value: value})
		}
		sortEntries(entries)
		return Map{Entries: entries}, nil
	case cbor.Tag:
		content, err := fromGo(val.Content)
		if err != nil {
			return nil, err
		}
		return Tagged{Tag: val.Number, Item: content}, nil
	}
	return nil, fmt.Errorf("cannot convert %T to dcbor item", v)
}

func sortEntries(entries []MapEntry) {
	// Order by the deterministic encoding of the key, matching the
	// wire ordering.
	keyBytes := func(e MapEntry) []byte {
		b, err := Encode(e.Key)
		if err != nil {
			return []byte(e.Key.Diagnostic())
		}
		return b
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && bytes.Compare(keyBytes(entries[j]), keyBytes(entries[j-1])) < 0; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
