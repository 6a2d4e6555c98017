package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackQueryObservesLatency(t *testing.T) {
	done := TrackQuery("metrics_test_op", "metrics_test_table")
	done()

	assert.Equal(t, 1, testutil.CollectAndCount(DatabaseQueryLatency))
}

func TestRecordTransitionIncrementsCounter(t *testing.T) {
	RecordTransition("metrics_test_op", OutcomeConflict)
	value := testutil.ToFloat64(
		LifecycleTransitions.WithLabelValues("metrics_test_op", OutcomeConflict),
	)
	assert.Equal(t, 1.0, value)
}
