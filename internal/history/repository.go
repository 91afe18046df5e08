package history

import (
	"time"

	"github.com/hugo/termpresence/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for activity events
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Record inserts a new activity event into the database
func (r *Repository) Record(event *models.ActivityEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activity event")
	}
	return nil
}

// Recent retrieves the most recent activity events, newest first.
func (r *Repository) Recent(limit int) ([]*models.ActivityEvent, error) {
	var events []*models.ActivityEvent
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activity events")
	}
	return events, nil
}

// Latest retrieves the most recent activity event, or nil when the history
// is empty.
func (r *Repository) Latest() (*models.ActivityEvent, error) {
	var event models.ActivityEvent
	result := r.db.Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.ActivityEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// Clear removes all activity events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM activity_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear activity events")
	}
	return nil
}
