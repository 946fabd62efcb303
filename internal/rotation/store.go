package rotation

import (
	"errors"
	"fmt"

	"github.com/ms-slunicko/rotation-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the CRUD surface over per-(child, date) attendance rows, shared
// by the engine and the handlers. Writes are last-writer-wins at the row
// level; there is no concurrency token, which is why engine runs for one
// date must be serialized by the caller.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the exception row for (child, date), or nil when the child is
// in the default state.
func (s *Store) Get(childID uint, date string) (*models.AttendanceStatus, error) {
	var row models.AttendanceStatus
	err := s.db.Where("child_id = ? AND date = ?", childID, date).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("attendance get: %w", err)
	}
	return &row, nil
}

// Upsert creates or updates the row for (child, date), applying the given
// mutation inside one transaction.
func (s *Store) Upsert(childID uint, date string, apply func(*models.AttendanceStatus)) (*models.AttendanceStatus, error) {
	var row models.AttendanceStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.FirstOrInit(&row, models.AttendanceStatus{ChildID: childID, Date: date}).Error; err != nil {
			return err
		}
		apply(&row)
		return tx.Omit(clause.Associations).Save(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("attendance upsert: %w", err)
	}
	return &row, nil
}

// Delete removes the exception row, returning the child to the default
// state. Deleting an absent row is not an error.
func (s *Store) Delete(childID uint, date string) error {
	err := s.db.Unscoped().
		Where("child_id = ? AND date = ?", childID, date).
		Delete(&models.AttendanceStatus{}).Error
	if err != nil {
		return fmt.Errorf("attendance delete: %w", err)
	}
	return nil
}

// ListQueue returns the date's rows with the given statuses in queue order:
// urgency first, then first come first served. "urgent" sorts after
// "flexible" lexically, so DESC puts urgent entries first.
func (s *Store) ListQueue(date string, statuses ...string) ([]models.AttendanceStatus, error) {
	var rows []models.AttendanceStatus
	err := s.db.Preload("Child").
		Where("date = ? AND status IN ?", date, statuses).
		Order("urgency_level DESC, updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("attendance list: %w", err)
	}
	return rows, nil
}
