package models

import "time"

// ScheduledJob 是持久化的调度任务行。触发器恰好二选一：
// RunAt (一次性绝对时间) 或 Cron (五段 cron 表达式)，创建时校验。
// 一次性任务触发后无论成败立即从存储删除；周期任务只能被显式取消。
type ScheduledJob struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`       // 任务唯一 ID
	Label       string    `gorm:"size:255" json:"label"`              // 展示名称
	Instruction string    `gorm:"type:text" json:"instruction"`       // 交给 Agent 循环的自然语言指令
	Cron        string    `gorm:"size:64" json:"cron,omitempty"`      // 周期触发表达式, 与 RunAt 互斥
	RunAt       *time.Time `json:"run_at,omitempty"`                  // 一次性触发时间, 与 Cron 互斥
	CreatedAt   time.Time `json:"created_at"`                         // 创建时间
}

// TableName 指定 GORM 使用的表名。
func (ScheduledJob) TableName() string {
	return "scheduled_jobs"
}

// IsRecurring 返回该任务是否为周期任务。
func (j *ScheduledJob) IsRecurring() bool {
	return j.Cron != ""
}

// JobInfo 是 list 接口返回的任务视图。
type JobInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	NextRun string `json:"next_run"`
	Trigger string `json:"trigger"`
}
