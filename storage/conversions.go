package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"markestedt/layoutfix/orchestrator"
)

// ErrNotFound is returned when a conversion id does not exist.
var ErrNotFound = errors.New("conversion not found")

// Conversion is one recorded invocation
type Conversion struct {
	ID               int64     `json:"id"`
	InvocationID     string    `json:"invocation_id"`
	Timestamp        time.Time `json:"timestamp"`
	Outcome          string    `json:"outcome"`
	Mode             string    `json:"mode"`
	CapturedChars    int       `json:"captured_chars"`
	ConvertedChars   int       `json:"converted_chars"`
	UsedSelectAll    bool      `json:"used_select_all"`
	Pasted           bool      `json:"pasted"`
	LanguageSwitched bool      `json:"language_switched"`
	DurationMs       int64     `json:"duration_ms"`
	CapturedText     string    `json:"captured_text,omitempty"`
	ConvertedText    string    `json:"converted_text,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// NewConversion builds a record from res. The selected text is kept
// only when storeText is set.
func NewConversion(res orchestrator.Result, storeText bool) *Conversion {
	c := &Conversion{
		InvocationID:     res.ID,
		Timestamp:        res.StartedAt,
		Outcome:          string(res.Outcome),
		Mode:             res.Mode.String(),
		CapturedChars:    res.CapturedChars,
		ConvertedChars:   res.ConvertedChars,
		UsedSelectAll:    res.UsedSelectAll,
		Pasted:           res.Pasted,
		LanguageSwitched: res.LanguageSwitched,
		DurationMs:       res.Duration.Milliseconds(),
		ErrorMessage:     res.ErrorMessage(),
	}
	if storeText {
		c.CapturedText = res.Captured
		c.ConvertedText = res.Converted
	}
	return c
}

// SaveConversion saves a conversion to the database
func (db *DB) SaveConversion(c *Conversion) error {
	query := `
		INSERT INTO conversions (
			invocation_id, outcome, mode, captured_chars, converted_chars,
			used_select_all, pasted, language_switched, duration_ms,
			captured_text, converted_text, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		c.InvocationID, c.Outcome, c.Mode, c.CapturedChars, c.ConvertedChars,
		c.UsedSelectAll, c.Pasted, c.LanguageSwitched, c.DurationMs,
		nullString(c.CapturedText), nullString(c.ConvertedText), nullString(c.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	c.ID = id
	return nil
}

// GetConversions retrieves conversions with pagination, newest first
func (db *DB) GetConversions(limit, offset int) ([]Conversion, error) {
	query := `
		SELECT
			id, invocation_id, timestamp, outcome, mode, captured_chars, converted_chars,
			used_select_all, pasted, language_switched, duration_ms,
			captured_text, converted_text, error_message
		FROM conversions
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	conversions := []Conversion{}
	for rows.Next() {
		var c Conversion
		var captured, converted, errorMessage sql.NullString

		err := rows.Scan(
			&c.ID, &c.InvocationID, &c.Timestamp, &c.Outcome, &c.Mode, &c.CapturedChars, &c.ConvertedChars,
			&c.UsedSelectAll, &c.Pasted, &c.LanguageSwitched, &c.DurationMs,
			&captured, &converted, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}

		c.CapturedText = captured.String
		c.ConvertedText = converted.String
		c.ErrorMessage = errorMessage.String

		conversions = append(conversions, c)
	}

	return conversions, rows.Err()
}

// DeleteConversion deletes a conversion by ID
func (db *DB) DeleteConversion(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM conversions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversion: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ClearConversions deletes the whole history and returns how many rows
// were removed.
func (db *DB) ClearConversions() (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM conversions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear conversions: %w", err)
	}
	return result.RowsAffected()
}

// GetConversionCount returns the total number of conversions
func (db *DB) GetConversionCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM conversions").Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
