package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
)

func TestReaper_SweepOnceFailsStaleProcessingVerifications(t *testing.T) {
	store := newFakeStore()
	fresh := &verification.Verification{ID: "fresh", Subject: verification.SubjectIndividual, Status: verification.StatusProcessing, UpdatedAt: time.Now()}
	stale := &verification.Verification{ID: "stale", Subject: verification.SubjectIndividual, Status: verification.StatusProcessing, UpdatedAt: time.Now().Add(-time.Hour)}
	store.byID[fresh.ID] = fresh
	store.byID[stale.ID] = stale

	r, err := NewReaper(store, testLogger(), 10*time.Minute, "@every 1h")
	require.NoError(t, err)

	r.sweepOnce()

	assert.Equal(t, verification.Status("processing"), fresh.Status)
	assert.Equal(t, verification.StatusFailed, stale.Status)
	assert.Contains(t, stale.Reason, "reaped")
}

func TestNewReaper_RejectsInvalidSchedule(t *testing.T) {
	store := newFakeStore()
	_, err := NewReaper(store, testLogger(), time.Minute, "not a schedule")
	assert.Error(t, err)
}
