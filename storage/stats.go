package storage

import (
	"fmt"
	"time"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date           string `json:"date"`
	Total          int    `json:"total"`
	Converted      int    `json:"converted"`
	Skipped        int    `json:"skipped"`
	Failed         int    `json:"failed"`
	CharsConverted int    `json:"chars_converted"`
}

// OutcomeStats groups invocations by how they ended
type OutcomeStats struct {
	Outcome       string  `json:"outcome"`
	Count         int     `json:"count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	Total            int     `json:"total"`
	Converted        int     `json:"converted"`
	NoText           int     `json:"no_text"`
	OverLimit        int     `json:"over_limit"`
	Unchanged        int     `json:"unchanged"`
	Failed           int     `json:"failed"`
	CharsConverted   int     `json:"chars_converted"`
	SelectAllCount   int     `json:"select_all_count"`
	LanguageSwitches int     `json:"language_switches"`
	AvgDurationMs    float64 `json:"avg_duration_ms"`
}

const overallColumns = `
	COUNT(*),
	COALESCE(SUM(CASE WHEN outcome = 'converted' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN outcome = 'no_text' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN outcome = 'over_limit' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN outcome = 'unchanged' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN outcome = 'converted' THEN converted_chars ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN used_select_all THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN language_switched THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(duration_ms), 0)
`

func (s *OverallStats) dest() []any {
	return []any{
		&s.Total, &s.Converted, &s.NoText, &s.OverLimit, &s.Unchanged, &s.Failed,
		&s.CharsConverted, &s.SelectAllCount, &s.LanguageSwitches, &s.AvgDurationMs,
	}
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total,
			SUM(CASE WHEN outcome = 'converted' THEN 1 ELSE 0 END) as converted,
			SUM(CASE WHEN outcome IN ('no_text', 'over_limit', 'unchanged') THEN 1 ELSE 0 END) as skipped,
			SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN outcome = 'converted' THEN converted_chars ELSE 0 END) as chars_converted
		FROM conversions
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []DailyStats{}
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.Total, &s.Converted, &s.Skipped, &s.Failed, &s.CharsConverted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOutcomeStats retrieves statistics grouped by outcome for the last N days
func (db *DB) GetOutcomeStats(days int) ([]OutcomeStats, error) {
	query := `
		SELECT
			outcome,
			COUNT(*) as count,
			AVG(duration_ms) as avg_duration_ms
		FROM conversions
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY outcome
		ORDER BY count DESC, outcome
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome stats: %w", err)
	}
	defer rows.Close()

	stats := []OutcomeStats{}
	for rows.Next() {
		var s OutcomeStats
		if err := rows.Scan(&s.Outcome, &s.Count, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan outcome stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `SELECT` + overallColumns + `
		FROM conversions
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
	`

	var stats OverallStats
	if err := db.conn.QueryRow(query, days).Scan(stats.dest()...); err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}

// GetStatsForDateRange retrieves overall stats for a custom date range
func (db *DB) GetStatsForDateRange(startTime, endTime time.Time) (*OverallStats, error) {
	query := `SELECT` + overallColumns + `
		FROM conversions
		WHERE timestamp >= ? AND timestamp <= ?
	`

	const layout = "2006-01-02 15:04:05"
	var stats OverallStats
	err := db.conn.QueryRow(query, startTime.UTC().Format(layout), endTime.UTC().Format(layout)).Scan(stats.dest()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query date range stats: %w", err)
	}

	return &stats, nil
}
