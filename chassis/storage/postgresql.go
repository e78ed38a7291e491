package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

const undefinedTable = "42P01"

// ErrSchemaMissing is returned when the audit table does not exist.
var ErrSchemaMissing = errors.New("audit table is missing")

const schema = `
create table if not exists t_gateway_audit (
	id         uuid primary key,
	action     text not null,
	queue      text not null,
	message_id text not null default '',
	state      text not null,
	error      text not null default '',
	created_dt timestamptz not null default now()
);
create index if not exists t_gateway_audit_created_dt_idx on t_gateway_audit(created_dt);
`

// PGRepository - ...
type PGRepository struct {
	pool *pgxpool.Pool
}

// InitPGRepository connects and makes sure the audit table exists.
func InitPGRepository(ctx context.Context, cfg Config) (*PGRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PGRepository{
		pool: pool,
	}, nil
}

// Record - ...
func (repo *PGRepository) Record(ctx context.Context, entry *Entry) error {
	query := `
	insert into t_gateway_audit(id, action, queue, message_id, state, error, created_dt)
	values ($1, $2, $3, $4, $5, $6, $7)
	on conflict (id) do nothing;
	`
	tag, err := repo.pool.Exec(ctx, query,
		entry.ID,
		string(entry.Action),
		entry.Queue,
		entry.MessageID,
		string(entry.State),
		entry.Error,
		entry.CreatedDt,
	)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("zero rows affected")
	}
	return nil
}

// Recent returns the newest entries first.
func (repo *PGRepository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
	select id, action, queue, message_id, state, error, created_dt
	from t_gateway_audit
	order by created_dt desc
	limit $1;
	`
	rows, err := repo.pool.Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var (
			entry  Entry
			action string
			state  string
		)
		if err := rows.Scan(&entry.ID, &action, &entry.Queue, &entry.MessageID, &state, &entry.Error, &entry.CreatedDt); err != nil {
			return nil, err
		}
		entry.Action = Action(action)
		entry.State = State(state)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return entries, nil
}

// CleanOldEntries deletes entries older than expiration seconds.
func (repo *PGRepository) CleanOldEntries(ctx context.Context, expiration int) (int, error) {
	query := `
	delete from t_gateway_audit
	where created_dt < now() - concat($1::int, ' seconds')::INTERVAL;
	`
	tag, err := repo.pool.Exec(ctx, query, expiration)
	if err != nil {
		return 0, translate(err)
	}
	return int(tag.RowsAffected()), nil
}

// Close ...
func (repo *PGRepository) Close() {
	repo.pool.Close()
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return err
}
