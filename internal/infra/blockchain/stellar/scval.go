package stellar

import (
	"encoding/json"
	"strings"
)

// scVal is one Soroban contract value in the RPC's JSON XDR encoding: an
// object with a single discriminating key, e.g. {"i128": "2000"} or
// {"address": "CA5T..."}. Parameter names are not part of the encoding,
// which is why Stellar candidates expose parameters positionally.
type scVal map[string]json.RawMessage

// typeName returns the capitalized XDR arm name ("Address", "I128", ...)
// used to assemble human-readable signatures.
func (v scVal) typeName() string {
	for key := range v {
		if key == "" {
			break
		}
		return strings.ToUpper(key[:1]) + key[1:]
	}
	return "Val"
}

// normalize renders the value in the canonical string form the expression
// language and templates consume: decimal for integers, the literal text
// for addresses, symbols and strings, "true"/"false" for booleans. Composite
// values fall back to their compact JSON encoding.
func (v scVal) normalize() string {
	for key, raw := range v {
		switch key {
		case "address", "symbol", "string", "bytes":
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s
			}

		case "bool":
			var b bool
			if err := json.Unmarshal(raw, &b); err == nil {
				if b {
					return "true"
				}
				return "false"
			}

		case "u32", "i32", "u64", "i64", "u128", "i128", "u256", "i256", "timepoint", "duration":
			// Wide integers arrive as JSON strings, narrow ones as numbers;
			// both render as their decimal text.
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return s
			}
			return string(raw)
		}

		return string(raw)
	}
	return ""
}
