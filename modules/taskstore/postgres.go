package taskstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       VARCHAR(100) NOT NULL,
	description VARCHAR(500),
	priority    TEXT NOT NULL CHECK (priority IN ('Low', 'Medium', 'High')),
	due_date    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'In Progress', 'Completed')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at DESC);
`

const selectTaskColumns = `id, user_id, title, description, priority, due_date, status, created_at, updated_at`

// PostgresStore stores tasks in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Scope returns a view of the tasks owned by ownerID.
func (s *PostgresStore) Scope(ownerID string) ScopedStore {
	return &scopedPostgres{pool: s.pool, ownerID: ownerID}
}

// Migrate creates the tasks table and its indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTasksTable); err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Driver names the backing database.
func (s *PostgresStore) Driver() string {
	return "postgres"
}

type scopedPostgres struct {
	pool    *pgxpool.Pool
	ownerID string
}

func (s *scopedPostgres) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectTaskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`,
		s.ownerID,
	)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, classify(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tasks, nil
}

func (s *scopedPostgres) Create(ctx context.Context, draft domain.Draft) (*domain.Task, error) {
	status := draft.Status
	if status == "" {
		status = domain.StatusPending
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, user_id, title, description, priority, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+selectTaskColumns,
		uuid.New().String(), s.ownerID, draft.Title, draft.Description,
		string(draft.Priority), draft.DueDate, string(status),
	)
	t, err := scanTask(row)
	if err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (s *scopedPostgres) Update(ctx context.Context, id string, patch domain.Patch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}
	query, args := buildUpdate(patch.Columns(), id, s.ownerID, time.Now())
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

func (s *scopedPostgres) Delete(ctx context.Context, id string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, s.ownerID)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}

// buildUpdate renders an UPDATE limited to the given id and owner. Columns
// are emitted in sorted order so the statement text is stable.
func buildUpdate(cols map[string]any, id, ownerID string, now time.Time) (string, []any) {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+3)
	for _, name := range names {
		args = append(args, cols[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id, ownerID)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	return query, args
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t        domain.Task
		priority string
		status   string
	)
	if err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &priority,
		&t.DueDate, &status, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return domain.Task{}, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	return t, nil
}
