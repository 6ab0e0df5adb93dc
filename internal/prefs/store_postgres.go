package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const createPrefsTable = `CREATE TABLE IF NOT EXISTS trainer_prefs (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (namespace, key)
)`

// PostgresStore persists preferences in table trainer_prefs, partitioned by namespace.
type PostgresStore struct {
	db        *sql.DB
	namespace string
}

func NewPostgresStore(ctx context.Context, databaseURL, namespace string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pctx, createPrefsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create trainer_prefs: %w", err)
	}
	return &PostgresStore{db: db, namespace: strings.TrimSpace(namespace)}, nil
}

func (r *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM trainer_prefs WHERE namespace=$1 AND key=$2`,
		r.namespace, strings.TrimSpace(key),
	).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trainer_prefs (namespace, key, value, updated_at)
        VALUES ($1,$2,$3,now())
        ON CONFLICT (namespace, key) DO UPDATE SET
        value=EXCLUDED.value,
        updated_at=EXCLUDED.updated_at`,
		r.namespace, strings.TrimSpace(key), value,
	)
	return err
}

func (r *PostgresStore) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
