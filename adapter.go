package patex

import (
	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/dcborpat"
	"github.com/clarete/patex/envelope"
)

// liftMatch runs a sub-matcher pattern against the CBOR form of a leaf
// or known-value envelope and lifts the resulting CBOR paths and
// captures into envelope paths.
//
// The lift rule: every CBOR value on a returned path becomes an
// envelope leaf appended after env, except the path's root when it
// equals the adapter's input, which would double the base envelope.
func liftMatch(sub dcborpat.Pattern, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	item, ok := env.AsItem()
	if !ok {
		return nil, nil, nil
	}
	cborPaths, cborCaptures := dcborpat.Match(sub, item)
	if len(cborPaths) == 0 {
		return nil, nil, nil
	}
	out := make([]Path, 0, len(cborPaths))
	for _, cp := range cborPaths {
		out = append(out, liftItemPath(env, item, cp))
	}
	var captures map[string][]Path
	for name, paths := range cborCaptures {
		for _, cp := range paths {
			captures = mergeNamed(captures, map[string][]Path{
				name: {liftItemPath(env, item, cp)},
			})
		}
	}
	return out, captures, nil
}

func liftItemPath(env *envelope.Envelope, root dcbor.Item, cp dcborpat.Path) Path {
	path := Path{env}
	rest := cp
	if len(rest) > 0 && dcbor.Equal(rest[0], root) {
		rest = rest[1:]
	}
	for _, item := range rest {
		path = append(path, envelope.New(item))
	}
	return path
}
