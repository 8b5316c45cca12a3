package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxicourses/price-scraper/internal/models"
)

func TestOutboxEventApplyDefaults(t *testing.T) {
	now := time.Now()

	t.Run("fills empty fields", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "price_report",
			AggregateID:   "8700216648783",
			EventType:     EventPriceExtracted,
		}

		event.applyDefaults(now)

		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, OutboxStatusPending, event.Status)
		assert.Equal(t, DefaultTargetStream, event.TargetStream)
		assert.Equal(t, now, event.CreatedAt)
		require.NotNil(t, event.NextRetryAt)
		assert.Equal(t, now, *event.NextRetryAt)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		id := uuid.New()
		retryAt := now.Add(time.Minute)
		event := &OutboxEvent{
			ID:           id,
			Status:       OutboxStatusFailed,
			TargetStream: "stream:custom",
			NextRetryAt:  &retryAt,
		}

		event.applyDefaults(now)

		assert.Equal(t, id, event.ID)
		assert.Equal(t, OutboxStatusFailed, event.Status)
		assert.Equal(t, "stream:custom", event.TargetStream)
		assert.Equal(t, retryAt, *event.NextRetryAt)
	})
}

func TestCalculateNextRetryTime(t *testing.T) {
	before := time.Now()

	first := calculateNextRetryTime(1)
	assert.True(t, first.After(before.Add(1*time.Second).Add(-50*time.Millisecond)))
	assert.True(t, first.Before(before.Add(3*time.Second)))

	// Backoff is capped at five minutes.
	capped := calculateNextRetryTime(20)
	assert.True(t, capped.Before(before.Add(6*time.Minute)))
}

func TestReportRow(t *testing.T) {
	rep := models.Report{
		Status:     models.StatusOK,
		Price:      "9,09",
		UnitPrice:  "3,00 € / KG",
		Title:      "Lessive Ariel",
		URL:        "https://www.example.fr/p",
		MatchedEAN: "8700216648783",
	}

	row := reportRow("8700216648783", "auchan", rep)

	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, "8700216648783", row.EAN)
	assert.Equal(t, "auchan", row.Store)
	assert.Equal(t, models.StatusOK, row.Status)
	require.NotNil(t, row.Price)
	assert.Equal(t, "9,09", *row.Price)
	assert.Nil(t, row.Quantity)
	assert.Nil(t, row.Note)
	assert.False(t, row.CreatedAt.IsZero())
}
