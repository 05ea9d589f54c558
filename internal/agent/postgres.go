package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalog stores agent configurations in PostgreSQL.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog connects, ensures the schema exists, and inserts any
// seed agents that are not already present.
func NewPostgresCatalog(ctx context.Context, databaseURL string, seed []Agent) (*PostgresCatalog, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	c := &PostgresCatalog{pool: pool}
	for _, a := range seed {
		if err := c.insertIfMissing(ctx, a); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return c, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			system_prompt TEXT NOT NULL,
			llm_model_id TEXT NOT NULL,
			tts_model_id TEXT NOT NULL,
			stt_model_id TEXT NOT NULL,
			voice_id TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (c *PostgresCatalog) insertIfMissing(ctx context.Context, a Agent) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO agents (id, name, system_prompt, llm_model_id, tts_model_id, stt_model_id, voice_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Name, a.SystemPrompt, a.LLMModelID, a.TTSModelID, a.STTModelID, a.VoiceID,
	)
	if err != nil {
		return fmt.Errorf("seed agent %q: %w", a.ID, err)
	}
	return nil
}

// Upsert creates or replaces an agent.
func (c *PostgresCatalog) Upsert(ctx context.Context, a Agent) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO agents (id, name, system_prompt, llm_model_id, tts_model_id, stt_model_id, voice_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			system_prompt = EXCLUDED.system_prompt,
			llm_model_id = EXCLUDED.llm_model_id,
			tts_model_id = EXCLUDED.tts_model_id,
			stt_model_id = EXCLUDED.stt_model_id,
			voice_id = EXCLUDED.voice_id,
			updated_at = now()`,
		a.ID, a.Name, a.SystemPrompt, a.LLMModelID, a.TTSModelID, a.STTModelID, a.VoiceID,
	)
	if err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

func (c *PostgresCatalog) Get(ctx context.Context, id string) (Agent, error) {
	var a Agent
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, system_prompt, llm_model_id, tts_model_id, stt_model_id, voice_id
		 FROM agents WHERE id=$1`, id,
	).Scan(&a.ID, &a.Name, &a.SystemPrompt, &a.LLMModelID, &a.TTSModelID, &a.STTModelID, &a.VoiceID)
	if err != nil {
		return Agent{}, queryError(id, err)
	}
	return a, nil
}

// queryError maps a missing row onto ErrNotFound.
func queryError(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("agent %q: %w", id, ErrNotFound)
	}
	return fmt.Errorf("query agent %q: %w", id, err)
}

func (c *PostgresCatalog) List(ctx context.Context) ([]Agent, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, name, system_prompt, llm_model_id, tts_model_id, stt_model_id, voice_id
		 FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.SystemPrompt, &a.LLMModelID, &a.TTSModelID, &a.STTModelID, &a.VoiceID); err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent rows: %w", err)
	}
	return out, nil
}

func (c *PostgresCatalog) Close() error {
	c.pool.Close()
	return nil
}
