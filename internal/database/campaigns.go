package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
)

// SaveCampaign archives a result under its history entry.
func (db *DB) SaveCampaign(entry campaign.HistoryEntry, result *campaign.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = db.conn.Exec(
		`INSERT OR REPLACE INTO campaigns (id, topic, generated_at, quality_score, result_json)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Topic, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.QualityScore, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving campaign %s: %w", entry.ID, err)
	}
	return nil
}

// GetCampaign returns the archived result for id, or nil when unknown.
func (db *DB) GetCampaign(id string) (*campaign.Result, error) {
	var data string
	err := db.conn.QueryRow("SELECT result_json FROM campaigns WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var r campaign.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decoding campaign %s: %w", id, err)
	}
	return &r, nil
}

// ListCampaigns returns the archived history entries, newest first.
func (db *DB) ListCampaigns() ([]campaign.HistoryEntry, error) {
	rows, err := db.conn.Query(
		"SELECT id, topic, generated_at, quality_score FROM campaigns ORDER BY seq DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []campaign.HistoryEntry
	for rows.Next() {
		var e campaign.HistoryEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.Topic, &ts, &e.QualityScore); err != nil {
			return nil, err
		}
		generatedAt, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp of campaign %s: %w", e.ID, err)
		}
		e.Timestamp = generatedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearCampaigns empties the archive.
func (db *DB) ClearCampaigns() error {
	_, err := db.conn.Exec("DELETE FROM campaigns")
	return err
}
