package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(generationsTotal.WithLabelValues(OutcomeParse))
	RecordGeneration(OutcomeParse, 1.5)
	assert.Equal(t, before+1, testutil.ToFloat64(generationsTotal.WithLabelValues(OutcomeParse)))
}

func TestLLMSlots(t *testing.T) {
	before := testutil.ToFloat64(llmInFlight)
	LLMSlotAcquired()
	LLMSlotAcquired()
	LLMSlotReleased()
	assert.Equal(t, before+1, testutil.ToFloat64(llmInFlight))
	LLMSlotReleased()
}

func TestRecordCounters(t *testing.T) {
	deleted := testutil.ToFloat64(roadmapsDeletedTotal)
	RecordRoadmapDeleted()
	assert.Equal(t, deleted+1, testutil.ToFloat64(roadmapsDeletedTotal))

	stale := testutil.ToFloat64(staleGenerationsTotal)
	RecordStaleGeneration()
	assert.Equal(t, stale+1, testutil.ToFloat64(staleGenerationsTotal))

	completed := testutil.ToFloat64(topicStatusUpdatesTotal.WithLabelValues("completed"))
	RecordTopicStatusUpdate("completed")
	assert.Equal(t, completed+1, testutil.ToFloat64(topicStatusUpdatesTotal.WithLabelValues("completed")))
}
