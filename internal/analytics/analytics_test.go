package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledWithoutWriteKey(t *testing.T) {
	// No write key is injected in test builds, so telemetry is off
	assert.True(t, Disabled())
}

func TestTrackEventIsNoopWhenDisabled(t *testing.T) {
	assert.NotPanics(t, func() {
		TrackEvent("cage_test_event")
		TrackCommandRun("bubblewrap")
		Close()
	})
}
