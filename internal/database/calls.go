package database

import (
	"fmt"
	"time"
)

// AgentCall is one invocation of the coordinating agent.
type AgentCall struct {
	ID       int64         `json:"id"`
	AgentID  string        `json:"agent_id"`
	Topic    string        `json:"topic"`
	Outcome  string        `json:"outcome"` // "success", "remote" or "transport"
	Error    *string       `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	CalledAt time.Time     `json:"called_at"`
}

// RecordAgentCall appends a call to the log.
func (db *DB) RecordAgentCall(c AgentCall) (int64, error) {
	if c.CalledAt.IsZero() {
		c.CalledAt = time.Now()
	}
	result, err := db.conn.Exec(
		`INSERT INTO agent_calls (agent_id, topic, outcome, error, duration_ms, called_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.AgentID, c.Topic, c.Outcome, c.Error, c.Duration.Milliseconds(),
		c.CalledAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentAgentCalls returns up to limit calls, newest first.
func (db *DB) RecentAgentCalls(limit int) ([]AgentCall, error) {
	rows, err := db.conn.Query(
		`SELECT id, agent_id, topic, outcome, error, duration_ms, called_at
		FROM agent_calls ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []AgentCall
	for rows.Next() {
		var c AgentCall
		var ms int64
		var ts string
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Topic, &c.Outcome, &c.Error, &ms, &ts); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		calledAt, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing call time of agent call %d: %w", c.ID, err)
		}
		c.CalledAt = calledAt
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
