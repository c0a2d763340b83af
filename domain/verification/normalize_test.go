package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePayload_FlattensNestedTimes(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"name": "Jane Doe",
		"dob":  now,
		"ubos": []interface{}{
			map[string]interface{}{
				"name":       "John Doe",
				"issued_at":  now,
				"nested_tag": []interface{}{now, "ok"},
			},
		},
	}

	normalized := NormalizePayload(payload)

	assert.Equal(t, "2026-01-15T10:30:00Z", normalized["dob"])
	ubos := normalized["ubos"].([]interface{})
	ubo := ubos[0].(map[string]interface{})
	assert.Equal(t, "2026-01-15T10:30:00Z", ubo["issued_at"])
	nested := ubo["nested_tag"].([]interface{})
	assert.Equal(t, "2026-01-15T10:30:00Z", nested[0])
	assert.Equal(t, "ok", nested[1])
}

func TestNormalizePayload_LeavesScalarsAlone(t *testing.T) {
	payload := map[string]interface{}{
		"count": 3,
		"name":  "acme corp",
		"flag":  true,
	}

	normalized := NormalizePayload(payload)

	assert.Equal(t, payload, normalized)
}
