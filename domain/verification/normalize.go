package verification

import "time"

// Normalize deep-walks a decoded JSON value (the shapes produced by
// encoding/json and provider SDK responses: map[string]interface{},
// []interface{}, and scalars) and rewrites every time.Time it finds into an
// ISO-8601 string. The Postgres store's AppendInput runs every
// VerificationInput payload through it at the persist boundary, so no agent
// has to remember to do it itself; AgentResult checks are persisted without
// it, per SPEC_FULL.md §D.4.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = Normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = Normalize(val)
		}
		return out
	default:
		return v
	}
}

// NormalizePayload normalizes a VerificationInput-shaped payload and returns
// the normalized copy; the map passed in is not modified.
func NormalizePayload(payload map[string]interface{}) map[string]interface{} {
	normalized := Normalize(payload)
	result, ok := normalized.(map[string]interface{})
	if !ok {
		return payload
	}
	return result
}
