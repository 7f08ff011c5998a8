package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oxhq/tspaths/models"
)

// ErrRunNotFound is returned when a run ID is unknown
var ErrRunNotFound = errors.New("run not found")

// Store records runs and the resolutions they produced
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and returns a store over it
func Open(dsn string, debug bool) (*Store, error) {
	db, err := Connect(dsn, debug)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// Record saves run together with its resolutions in one transaction
func (s *Store) Record(run *models.Run, resolutions []models.Resolution) error {
	now := time.Now()
	run.FinishedAt = &now

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if len(resolutions) == 0 {
			return nil
		}
		for i := range resolutions {
			resolutions[i].RunID = run.ID
		}
		if err := tx.CreateInBatches(resolutions, 100).Error; err != nil {
			return fmt.Errorf("failed to save resolutions: %w", err)
		}
		return nil
	})
}

// HistoryFilter narrows History. Zero values match everything.
type HistoryFilter struct {
	RunID   string
	Request string
	Status  string
	Limit   int
}

// History returns recorded resolutions, newest first
func (s *Store) History(f HistoryFilter) ([]models.Resolution, error) {
	q := s.db.Model(&models.Resolution{}).Order("id DESC")
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.Request != "" {
		q = q.Where("request = ?", f.Request)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Resolution
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return out, nil
}

// Runs returns the latest runs, newest first
func (s *Store) Runs(limit int) ([]models.Run, error) {
	q := s.db.Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Run
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return out, nil
}

// Run loads one run with its resolutions
func (s *Store) Run(id string) (*models.Run, error) {
	var run models.Run
	err := s.db.Preload("Resolutions", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes runs started before cutoff and their resolutions
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	var removed int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&models.Run{}).Select("id").Where("started_at < ?", cutoff)
		if err := tx.Where("run_id IN (?)", old).Delete(&models.Resolution{}).Error; err != nil {
			return err
		}
		res := tx.Where("started_at < ?", cutoff).Delete(&models.Run{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return removed, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
