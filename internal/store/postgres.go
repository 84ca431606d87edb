// Package store — postgres.go реализует Store поверх PostgreSQL.
// Строки лежат в kv_strings, sorted set'ы — в kv_sorted_sets (см. db/postgres/migrations).
// Атомарность инкрементов обеспечивает INSERT ... ON CONFLICT DO UPDATE ... RETURNING.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres работает с таблицами kv_strings и kv_sorted_sets.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres создаёт хранилище поверх пула соединений.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ZIncrBy(ctx context.Context, set, member string, delta int64) (int64, error) {
	query := `
		INSERT INTO kv_sorted_sets (set_name, member, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (set_name, member)
		DO UPDATE SET score = kv_sorted_sets.score + EXCLUDED.score, updated_at = NOW()
		RETURNING score
	`
	var score int64
	if err := p.db.QueryRow(ctx, query, set, member, delta).Scan(&score); err != nil {
		return 0, fmt.Errorf("zincrby %s/%s: %w", set, member, err)
	}
	return score, nil
}

func (p *Postgres) ZScore(ctx context.Context, set, member string) (int64, bool, error) {
	query := `SELECT score FROM kv_sorted_sets WHERE set_name = $1 AND member = $2`
	var score int64
	err := p.db.QueryRow(ctx, query, set, member).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zscore %s/%s: %w", set, member, err)
	}
	return score, true, nil
}

func (p *Postgres) ZAdd(ctx context.Context, set, member string, score int64) error {
	query := `
		INSERT INTO kv_sorted_sets (set_name, member, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (set_name, member)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
	`
	if _, err := p.db.Exec(ctx, query, set, member, score); err != nil {
		return fmt.Errorf("zadd %s/%s: %w", set, member, err)
	}
	return nil
}

func (p *Postgres) ZRem(ctx context.Context, set string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	query := `DELETE FROM kv_sorted_sets WHERE set_name = $1 AND member = ANY($2)`
	if _, err := p.db.Exec(ctx, query, set, members); err != nil {
		return fmt.Errorf("zrem %s: %w", set, err)
	}
	return nil
}

func (p *Postgres) ZRange(ctx context.Context, set string, start, stop int, desc bool) ([]Member, error) {
	n, err := p.ZCard(ctx, set)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := rankBounds(start, stop, n)
	if !ok {
		return nil, nil
	}
	order := "score ASC, member ASC"
	if desc {
		order = "score DESC, member DESC"
	}
	query := `SELECT member, score FROM kv_sorted_sets WHERE set_name = $1 ORDER BY ` + order + ` OFFSET $2 LIMIT $3`
	return p.queryMembers(ctx, query, set, lo, hi-lo)
}

func (p *Postgres) ZRangeByScore(ctx context.Context, set string, min, max int64) ([]Member, error) {
	query := `
		SELECT member, score FROM kv_sorted_sets
		WHERE set_name = $1 AND score BETWEEN $2 AND $3
		ORDER BY score ASC, member ASC
	`
	return p.queryMembers(ctx, query, set, min, max)
}

func (p *Postgres) queryMembers(ctx context.Context, query string, args ...any) ([]Member, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения sorted set: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Member, &m.Score); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) ZCard(ctx context.Context, set string) (int, error) {
	var n int
	err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM kv_sorted_sets WHERE set_name = $1`, set).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", set, err)
	}
	return n, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRow(ctx, `SELECT value FROM kv_strings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_strings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := p.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) SetNX(ctx context.Context, key, value string) (bool, error) {
	query := `INSERT INTO kv_strings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`
	tag, err := p.db.Exec(ctx, query, key, value)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.db.Exec(ctx, `DELETE FROM kv_strings WHERE key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM kv_strings WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return exists, nil
}

func (p *Postgres) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	query := `
		INSERT INTO kv_strings (key, value) VALUES ($1, $2::bigint::text)
		ON CONFLICT (key)
		DO UPDATE SET value = (kv_strings.value::bigint + $2::bigint)::text, updated_at = NOW()
		RETURNING value::bigint
	`
	var value int64
	if err := p.db.QueryRow(ctx, query, key, delta).Scan(&value); err != nil {
		return 0, fmt.Errorf("incrby %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) DelPrefix(ctx context.Context, prefix string) (int, error) {
	// Экранируем спецсимволы LIKE
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	tag, err := p.db.Exec(ctx, `DELETE FROM kv_strings WHERE key LIKE $1 || '%'`, escaped)
	if err != nil {
		return 0, fmt.Errorf("delprefix %s: %w", prefix, err)
	}
	return int(tag.RowsAffected()), nil
}
