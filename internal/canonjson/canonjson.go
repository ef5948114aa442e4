// Package canonjson serializes values as canonical JSON (RFC 8785, JSON
// Canonicalization Scheme): UTF-8, sorted object keys, compact separators,
// non-ASCII characters preserved rather than \u-escaped.
//
// Go's encoding/json sorts map keys at every level, but it emits struct
// fields in declaration order and HTML-escapes '<', '>' and '&' by
// default, so its output is not JCS; using the real JCS implementation
// keeps our hashes identical to the sha256(json.dumps(obj, ensure_ascii=False,
// sort_keys=True, separators=(",",":"))) the reference implementation
// computes (see DESIGN.md).
package canonjson

import (
	"encoding/json"
	"fmt"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Marshal encodes v as ordinary JSON and then transforms it into its
// canonical form.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal: %w", err)
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonjson: canonicalize: %w", err)
	}
	return canon, nil
}

// MustMarshal is Marshal but panics on error. Reserved for call sites where
// v is a value this package's own callers constructed (never arbitrary
// external input), mirroring how the reference implementation treats
// _stable_json/_json_bytes as infallible internal helpers.
func MustMarshal(v any) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
