// Package store archives exported job records in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Paxxs/moledao-spider/internal/errors"
	"github.com/Paxxs/moledao-spider/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS job_postings (
	id                 TEXT PRIMARY KEY,
	company            TEXT NOT NULL,
	role               TEXT NOT NULL,
	type_text          TEXT NOT NULL,
	preference_text    TEXT NOT NULL,
	experience_text    TEXT NOT NULL,
	location           TEXT NOT NULL,
	tag_text           TEXT NOT NULL,
	content_paragraphs TEXT[] NOT NULL,
	update_date        TEXT NOT NULL,
	archived_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO job_postings (id, company, role, type_text, preference_text, experience_text, location, tag_text, content_paragraphs, update_date, archived_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id)
DO UPDATE SET company = EXCLUDED.company, role = EXCLUDED.role, type_text = EXCLUDED.type_text,
	preference_text = EXCLUDED.preference_text, experience_text = EXCLUDED.experience_text,
	location = EXCLUDED.location, tag_text = EXCLUDED.tag_text,
	content_paragraphs = EXCLUDED.content_paragraphs, update_date = EXCLUDED.update_date,
	archived_at = EXCLUDED.archived_at`

type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// Connect opens a pool, verifies it and makes sure the archive table exists.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.Unavailable("parse database url", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, apperrors.Unavailable("connect to postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Unavailable("postgres ping failed", err)
	}

	p := &Postgres{pool: pool, logger: logger, now: time.Now}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return apperrors.Unavailable("create job_postings table", err)
	}
	return nil
}

// SaveRecords upserts records by id in one batch.
func (p *Postgres) SaveRecords(ctx context.Context, records []model.NormalizedRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := buildBatch(records, p.now())
	br := p.pool.SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert job %s: %w", rec.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	p.logger.Info("archived job postings", zap.Int("records", len(records)))
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func buildBatch(records []model.NormalizedRecord, at time.Time) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, r := range records {
		paragraphs := r.ContentParagraphs
		if paragraphs == nil {
			paragraphs = []string{}
		}
		batch.Queue(upsertSQL,
			r.ID, r.Company, r.Role, r.TypeText, r.PreferenceText, r.ExperienceText,
			r.Location, r.TagText, paragraphs, r.UpdateDate, at,
		)
	}
	return batch
}
