// Package analytics summarizes the maintenance records of one day.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"forklift-assistant/internal/records"
)

// DailyStats counts the records saved on one day.
type DailyStats struct {
	Date        string         `json:"date"`
	Total       int            `json:"total"`
	ByEquipment map[string]int `json:"by_equipment"`
}

// EquipmentCount is one row of the per-equipment ranking.
type EquipmentCount struct {
	Equipment string
	Count     int
}

// Summarize counts records created on day, in day's location.
func Summarize(recs []records.Record, day time.Time) *DailyStats {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:        startOfDay.Format("2006-01-02"),
		ByEquipment: make(map[string]int),
	}
	for _, r := range recs {
		if r.Timestamp.Before(startOfDay) || !r.Timestamp.Before(endOfDay) {
			continue
		}
		stats.Total++
		stats.ByEquipment[r.Equipment]++
	}
	return stats
}

// Ranking orders equipment by record count, then by name.
func (ds *DailyStats) Ranking() []EquipmentCount {
	out := make([]EquipmentCount, 0, len(ds.ByEquipment))
	for eq, n := range ds.ByEquipment {
		out = append(out, EquipmentCount{Equipment: eq, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Equipment < out[j].Equipment
	})
	return out
}

// Text renders the stats for the admin chat.
func (ds *DailyStats) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Relatório de manutenção de %s\n\n", ds.Date)
	if ds.Total == 0 {
		b.WriteString("Nenhuma solução registrada no dia.")
		return b.String()
	}
	fmt.Fprintf(&b, "Soluções registradas: %d\n", ds.Total)
	fmt.Fprintf(&b, "Equipamentos atendidos: %d\n\n", len(ds.ByEquipment))
	for _, row := range ds.Ranking() {
		fmt.Fprintf(&b, "- %s: %d\n", row.Equipment, row.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

type SinceLister interface {
	ListSince(ctx context.Context, since time.Time) ([]records.Record, error)
}

// Reporter builds today's report from a record store.
type Reporter struct {
	store SinceLister
	loc   *time.Location
	now   func() time.Time
}

func NewReporter(store SinceLister, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{store: store, loc: loc, now: time.Now}
}

// Stats loads and summarizes the records of the current day.
func (r *Reporter) Stats(ctx context.Context) (*DailyStats, error) {
	day := r.now().In(r.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	recs, err := r.store.ListSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("list records since %s: %w", start.Format(time.RFC3339), err)
	}
	return Summarize(recs, day), nil
}

func (r *Reporter) Report(ctx context.Context) (string, error) {
	stats, err := r.Stats(ctx)
	if err != nil {
		return "", err
	}
	return stats.Text(), nil
}
