package engine

import (
	"sort"

	"github.com/mmynk/binarypay/internal/models"
)

// ReconcileDuplicates keeps one settlement per (participant, date): the most recently
// created, ties broken by the larger ID. Duplicates are discarded, never summed.
// kept is ordered by participant then date.
func ReconcileDuplicates(rows []*models.DailySettlement) (kept, discarded []*models.DailySettlement) {
	type key struct {
		participant string
		date        string
	}
	latest := make(map[key]*models.DailySettlement, len(rows))

	for _, row := range rows {
		k := key{row.ParticipantID, models.FormatDate(row.Date)}
		cur, ok := latest[k]
		switch {
		case !ok:
			latest[k] = row
		case newer(row, cur):
			discarded = append(discarded, cur)
			latest[k] = row
		default:
			discarded = append(discarded, row)
		}
	}

	kept = make([]*models.DailySettlement, 0, len(latest))
	for _, row := range latest {
		kept = append(kept, row)
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].ParticipantID != kept[j].ParticipantID {
			return kept[i].ParticipantID < kept[j].ParticipantID
		}
		return kept[i].Date.Before(kept[j].Date)
	})
	return kept, discarded
}

func newer(a, b *models.DailySettlement) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}
