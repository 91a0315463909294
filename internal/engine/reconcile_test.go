package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/binarypay/internal/models"
)

func TestReconcileDuplicates(t *testing.T) {
	d1 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	rows := []*models.DailySettlement{
		{ID: "a-old", ParticipantID: "a", Date: d1, CreatedAt: 10, Pairs: 1},
		{ID: "a-new", ParticipantID: "a", Date: d1, CreatedAt: 20, Pairs: 2},
		{ID: "a-mid", ParticipantID: "a", Date: d1, CreatedAt: 15, Pairs: 9},
		{ID: "a-d2", ParticipantID: "a", Date: d2, CreatedAt: 5},
		{ID: "b-1", ParticipantID: "b", Date: d1, CreatedAt: 30},
		{ID: "b-2", ParticipantID: "b", Date: d1, CreatedAt: 30},
	}

	kept, discarded := ReconcileDuplicates(rows)

	require.Len(t, kept, 3)
	assert.Equal(t, "a-new", kept[0].ID)
	assert.Equal(t, int64(2), kept[0].Pairs, "duplicates must not be summed")
	assert.Equal(t, "a-d2", kept[1].ID)
	assert.Equal(t, "b-2", kept[2].ID, "ties keep the larger ID")

	ids := make([]string, 0, len(discarded))
	for _, d := range discarded {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{"a-old", "a-mid", "b-1"}, ids)
}

func TestReconcileDuplicatesEmpty(t *testing.T) {
	kept, discarded := ReconcileDuplicates(nil)
	assert.Empty(t, kept)
	assert.Empty(t, discarded)
}
