package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_RoundTripsThroughJSON(t *testing.T) {
	job := &Job{
		ID:          "job-1",
		Type:        "kyc_verification",
		Payload:     json.RawMessage(`{"verification_id":"v-1"}`),
		Attempts:    1,
		MaxAttempts: maxAttempts,
	}

	encoded, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded Job
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Type, decoded.Type)
	assert.Equal(t, job.Attempts, decoded.Attempts)
	assert.JSONEq(t, string(job.Payload), string(decoded.Payload))
}

func TestInfo_HealthyWhenQueried(t *testing.T) {
	info := Info{Queued: 2, InFlight: 1, Healthy: true}
	assert.True(t, info.Healthy)
	assert.Equal(t, int64(2), info.Queued)
}
