package store

import (
	"gorm.io/gorm"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(run *Run) error {
	return r.db.Create(run).Error
}

// GetByRunID returns gorm.ErrRecordNotFound for unknown ids.
func (r *RunRepository) GetByRunID(id string) (*Run, error) {
	var run Run
	err := r.db.Where("run_id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns a page of runs, newest first, optionally filtered by
// scheduler.
func (r *RunRepository) List(current, size int, scheduler string) ([]Run, int64, error) {
	var runs []Run
	var total int64

	query := r.db.Model(&Run{})
	if scheduler != "" {
		query = query.Where("scheduler = ?", scheduler)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if current < 1 {
		current = 1
	}
	if size < 1 {
		size = 20
	}
	offset := (current - 1) * size
	if err := query.Offset(offset).Limit(size).Order("id DESC").Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (r *RunRepository) Delete(id string) error {
	return r.db.Where("run_id = ?", id).Delete(&Run{}).Error
}
