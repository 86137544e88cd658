package scheduler

import (
	"fmt"

	"OpenClaw/backend/go/internal/models"

	"gorm.io/gorm"
)

// JobStore 是调度器对持久层的最小依赖。Delete 在记录不存在时
// 返回 gorm.ErrRecordNotFound。
type JobStore interface {
	Save(job *models.ScheduledJob) error
	All() ([]models.ScheduledJob, error)
	Delete(id string) error
}

// Store 负责计划任务的持久化, 调度器重启后从这里恢复。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.ScheduledJob{}); err != nil {
		return nil, fmt.Errorf("迁移 scheduled_jobs 表失败: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(job *models.ScheduledJob) error {
	return s.db.Create(job).Error
}

func (s *Store) Delete(id string) error {
	result := s.db.Delete(&models.ScheduledJob{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) All() ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	if err := s.db.Order("created_at").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
