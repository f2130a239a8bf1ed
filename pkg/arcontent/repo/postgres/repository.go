package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-ar/pkg/arcontent"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements arcontent.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ arcontent.Repository = (*Repository)(nil)

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "project") {
				return fmt.Errorf("referenced project not found")
			}
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return arcontent.ErrNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func lookup(kind arcontent.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown kind %q", kind)
	}
	return t, nil
}

func (r *Repository) Insert(ctx context.Context, e arcontent.Entity) (int64, error) {
	t, err := lookup(e.Kind())
	if err != nil {
		return 0, err
	}

	placeholders := make([]string, len(t.columns))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		t.name, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := r.db.QueryRow(ctx, query, t.values(e)...).Scan(&id); err != nil {
		return 0, r.handlePostgresError("insert "+string(e.Kind()), err)
	}
	e.SetEntityID(id)
	return id, nil
}

func (r *Repository) Get(ctx context.Context, kind arcontent.Kind, id int64) (arcontent.Entity, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s WHERE id = $1`, strings.Join(t.columns, ", "), t.name)
	e := arcontent.NewEntity(kind)
	if err := r.db.QueryRow(ctx, query, id).Scan(t.targets(e)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, arcontent.ErrNotFound
		}
		return nil, r.handlePostgresError("get "+string(kind), err)
	}
	return e, nil
}

func (r *Repository) Save(ctx context.Context, e arcontent.Entity) error {
	t, err := lookup(e.Kind())
	if err != nil {
		return err
	}

	sets := make([]string, len(t.columns))
	for i, col := range t.columns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, t.name, strings.Join(sets, ", "))

	args := append([]interface{}{e.EntityID()}, t.values(e)...)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("save "+string(e.Kind()), err)
	}
	if tag.RowsAffected() == 0 {
		return arcontent.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, kind arcontent.Kind, id int64) error {
	t, err := lookup(kind)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.name), id)
	if err != nil {
		return r.handlePostgresError("delete "+string(kind), err)
	}
	if tag.RowsAffected() == 0 {
		return arcontent.ErrNotFound
	}
	return nil
}

func (r *Repository) ListIDs(ctx context.Context, kind arcontent.Kind) ([]int64, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	return r.queryIDs(ctx, "list "+string(kind), fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, t.name))
}

func (r *Repository) Page(ctx context.Context, kind arcontent.Kind, page, size int) ([]arcontent.Entity, int64, error) {
	t, err := lookup(kind)
	if err != nil {
		return nil, 0, err
	}
	if page < 0 || size < 1 {
		return nil, 0, fmt.Errorf("invalid page %d/%d", page, size)
	}

	var total int64
	if err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&total); err != nil {
		return nil, 0, r.handlePostgresError("count "+string(kind), err)
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY id LIMIT $1 OFFSET $2`, strings.Join(t.columns, ", "), t.name)
	rows, err := r.db.Query(ctx, query, size, page*size)
	if err != nil {
		return nil, 0, r.handlePostgresError("page "+string(kind), err)
	}
	defer rows.Close()

	result := []arcontent.Entity{}
	for rows.Next() {
		e := arcontent.NewEntity(kind)
		if err := rows.Scan(t.targets(e)...); err != nil {
			return nil, 0, r.handlePostgresError("page "+string(kind), err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, r.handlePostgresError("page "+string(kind), err)
	}
	return result, total, nil
}

func (r *Repository) ResourceIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	return r.queryIDs(ctx, "list project resources",
		`SELECT id FROM resources WHERE project_id = $1 ORDER BY id`, projectID)
}

// Atomically runs fn inside a transaction. Nested calls use savepoints.
func (r *Repository) Atomically(ctx context.Context, fn func(repo arcontent.Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit", err)
	}
	return nil
}

func (r *Repository) queryIDs(ctx context.Context, operation, query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return ids, nil
}
