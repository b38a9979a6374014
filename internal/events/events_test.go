package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeBasic(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("batch:1")

	b.Publish("batch:1", Event{Type: TypeBatchStarted})

	ev := <-ch
	assert.Equal(t, TypeBatchStarted, ev.Type)
	assert.Equal(t, uint64(1), ev.Seq)
}

func TestPublishBatchEventReachesBothTopics(t *testing.T) {
	b := New()
	_, batchCh := b.Subscribe(BatchTopic("b1"))
	_, dashCh := b.Subscribe(DashboardTopic)

	b.PublishBatchEvent("b1", Event{Type: TypeSubjectProcessed})

	batchEv := <-batchCh
	dashEv := <-dashCh
	assert.Equal(t, TypeSubjectProcessed, batchEv.Type)
	assert.Equal(t, TypeSubjectProcessed, dashEv.Type)
	assert.Equal(t, "b1", batchEv.BatchID)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	id, _ := b.Subscribe("topic")
	b.Unsubscribe("topic", id)
	assert.NotPanics(t, func() { b.Unsubscribe("topic", id) })
	assert.NotPanics(t, func() { b.Unsubscribe("topic", 99999) })
}

func TestSequenceNumbersNonDecreasing(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("topic")
	for i := 0; i < 5; i++ {
		b.Publish("topic", Event{Type: TypeBatchProgress})
	}
	var last uint64
	for i := 0; i < 5; i++ {
		ev := <-ch
		assert.GreaterOrEqual(t, ev.Seq, last)
		last = ev.Seq
	}
}

func TestBackpressureDropsOldestAndWarns(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("topic")

	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish("topic", Event{Type: TypeBatchProgress})
	}

	var sawWarning bool
	drained := 0
	for {
		select {
		case ev := <-ch:
			drained++
			if ev.Type == TypeBackpressureWarning {
				sawWarning = true
			}
		default:
			goto done
		}
	}
done:
	require.Greater(t, drained, 0)
	assert.True(t, sawWarning)
}

func TestMultipleBusesDoNotPanicOnMetricsRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
