package appdb

import (
	"log/slog"
)

// ConsultationCount is the number of gallery views of one activity.
type ConsultationCount struct {
	ActivityKey string
	Views       int
}

// RecordConsultation logs one gallery page view. Analytics are informational
// only; a failure is logged and dropped, never surfaced to the visitor.
func (db *DB) RecordConsultation(activityKey string) {
	_, err := db.conn.Exec(`INSERT INTO consultations (activity_key) VALUES (?)`, activityKey)
	if err != nil {
		slog.Warn("Failed to record consultation", "activity", activityKey, "error", err)
	}
}

// ConsultationCounts returns views per activity, most viewed first. Unlike
// the order store, this read degrades to an empty result on failure.
func (db *DB) ConsultationCounts() []ConsultationCount {
	rows, err := db.conn.Query(`
		SELECT activity_key, COUNT(*) AS views
		FROM consultations
		GROUP BY activity_key
		ORDER BY views DESC
	`)
	if err != nil {
		slog.Warn("Failed to load consultation counts", "error", err)
		return nil
	}
	defer rows.Close()

	var counts []ConsultationCount
	for rows.Next() {
		var c ConsultationCount
		if err := rows.Scan(&c.ActivityKey, &c.Views); err != nil {
			slog.Warn("Failed to scan consultation count", "error", err)
			return nil
		}
		counts = append(counts, c)
	}
	return counts
}
