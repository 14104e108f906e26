package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shenikar/event_rescue/internal/models"
)

const emptySummary = "No incidents yet. Monitoring active."

// Summary строит текстовую сводку по текущей ленте
func (d *Distributor) Summary() string {
	return Digest(d.Snapshot())
}

// Digest считает инциденты по типам: самые частые первыми, при равенстве по имени типа
func Digest(incidents []models.Incident) string {
	if len(incidents) == 0 {
		return emptySummary
	}

	counts := make(map[models.IncidentType]int)
	for _, inc := range incidents {
		counts[inc.Type]++
	}

	kinds := make([]models.IncidentType, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s x%d", k, counts[k])
	}
	return fmt.Sprintf("Recent activity: %s. Stay vigilant and monitor critical zones.", strings.Join(parts, ", "))
}
