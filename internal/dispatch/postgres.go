package dispatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"hospitality-commands/internal/models"
)

const createCommandsTable = `CREATE TABLE IF NOT EXISTS whatsapp_commands (
	id          UUID PRIMARY KEY,
	sender      TEXT NOT NULL,
	body        TEXT NOT NULL,
	command     TEXT,
	payload     JSONB,
	status      TEXT NOT NULL,
	error_code  TEXT,
	source      TEXT,
	created_at  TIMESTAMPTZ NOT NULL
)`

const insertCommand = `INSERT INTO whatsapp_commands
	(id, sender, body, command, payload, status, error_code, source, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const selectRecentCommands = `SELECT id, sender, body, command, payload, status, error_code, source, created_at
	FROM whatsapp_commands ORDER BY created_at DESC LIMIT $1`

type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCommandsTable); err != nil {
		return fmt.Errorf("create whatsapp_commands: %w", err)
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, rec models.CommandRecord) error {
	var payload interface{}
	if rec.Payload != nil {
		b, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payload = string(b)
	}

	_, err := s.db.ExecContext(ctx, insertCommand,
		rec.ID,
		rec.Sender,
		rec.Body,
		nullString(rec.Command),
		payload,
		string(rec.Status),
		nullString(rec.ErrorCode),
		nullString(string(rec.Source)),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]models.CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecentCommands, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var out []models.CommandRecord
	for rows.Next() {
		var (
			rec                     models.CommandRecord
			command, errorCode, src sql.NullString
			payload                 []byte
			status                  string
		)
		if err := rows.Scan(&rec.ID, &rec.Sender, &rec.Body, &command, &payload, &status, &errorCode, &src, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		rec.Command = command.String
		rec.ErrorCode = errorCode.String
		rec.Source = models.Source(src.String)
		rec.Status = models.OutcomeStatus(status)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &rec.Payload); err != nil {
				return nil, fmt.Errorf("decode payload: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
