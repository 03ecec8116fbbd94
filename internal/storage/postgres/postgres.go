package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	ProjectID string                 `json:"project_id"`
}

// Client manages the Postgres connection for the node event log.
type Client struct {
	db        *sql.DB
	projectID string
}

// ConnString builds a lib/pq connection string from the PG* environment variables.
// password is passed separately so it can come from a *_FILE secret.
func ConnString(password string) string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "gimelstudio")
	dbname := getEnv("PGDATABASE", "gimelstudio")
	sslmode := getEnv("PGSSLMODE", "disable")

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode)
}

// New connects to Postgres and ensures the event table exists.
// Callers treat an error as "run without persistence".
func New(connStr, projectID string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:        db,
		projectID: projectID,
	}

	// Create table if not exists
	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return client, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS node_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			project_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_node_events_ts ON node_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_node_events_project ON node_events(project_id, event, event_id DESC);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event for the client's project.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	query := `
		INSERT INTO node_events (ts, level, event, msg, fields, project_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.projectID)
	return err
}

// QueryEvents returns up to limit of the project's events, newest first.
// Only events named in names are returned; an empty names matches all.
// A positive beforeID restricts the result to older events, so callers can
// page backwards by passing the smallest EventID of the previous page.
func (c *Client) QueryEvents(names []string, beforeID int64, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `
		SELECT event_id, ts, level, event, msg, fields, project_id
		FROM node_events
		WHERE project_id = $1
		  AND (cardinality($2::text[]) = 0 OR event = ANY($2))
		  AND ($3::bigint <= 0 OR event_id < $3::bigint)
		ORDER BY event_id DESC
		LIMIT $4
	`
	rows, err := c.db.Query(query, c.projectID, pq.Array(names), beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.ProjectID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields of event %d: %w", e.EventID, err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ProjectID returns the project the client reads and writes.
func (c *Client) ProjectID() string {
	return c.projectID
}
