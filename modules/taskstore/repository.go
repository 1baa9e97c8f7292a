package taskstore

import (
	"context"
	"time"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores tasks through GORM.
type Repository struct {
	db *gorm.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Scope returns a view of the tasks owned by ownerID.
func (r *Repository) Scope(ownerID string) ScopedStore {
	return &scopedRepository{db: r.db, ownerID: ownerID}
}

// Migrate creates or updates the tasks table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&domain.Task{})
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Driver names the backing database.
func (r *Repository) Driver() string {
	return r.db.Dialector.Name()
}

type scopedRepository struct {
	db      *gorm.DB
	ownerID string
}

// owned starts a query filtered to the owner's rows.
func (s *scopedRepository) owned(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", s.ownerID)
}

func (s *scopedRepository) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := s.owned(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, classify(err)
	}
	return tasks, nil
}

func (s *scopedRepository) Create(ctx context.Context, draft domain.Draft) (*domain.Task, error) {
	status := draft.Status
	if status == "" {
		status = domain.StatusPending
	}
	t := &domain.Task{
		ID:          uuid.New().String(),
		UserID:      s.ownerID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		Status:      status,
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, classify(err)
	}
	return t, nil
}

func (s *scopedRepository) Update(ctx context.Context, id string, patch domain.Patch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}
	cols := patch.Columns()
	cols["updated_at"] = time.Now()

	result := s.owned(ctx).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}

func (s *scopedRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, s.ownerID).
		Delete(&domain.Task{})
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}
