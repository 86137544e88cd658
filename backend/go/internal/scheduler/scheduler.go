package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrJobNotFound 表示按 id 取消时任务不存在。取消不是幂等的:
// 调用方据此向用户报告任务已经不在了。
var ErrJobNotFound = errors.New("scheduled job not found")

// Runner 在触发时刻以无会话模式执行一条指令并返回最终文本。
type Runner func(ctx context.Context, instruction string) (string, error)

// Notifier 把触发结果推送给管理员。
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler 管理持久化的计划任务: 每个任务一个计时器 goroutine,
// 先落库再武装, 重启时从库里重放。一次性任务触发后自删,
// 周期任务触发后重新武装下一次。
type Scheduler struct {
	store    JobStore
	run      Runner
	notifier Notifier
	log      *logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

func New(store JobStore, run Runner, notifier Notifier, log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:    store,
		run:      run,
		notifier: notifier,
		log:      log,
		timers:   map[string]*time.Timer{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 从库里重放全部任务。已过期的一次性任务直接丢弃 (删除并记日志),
// 不补跑; 周期任务从当前时刻重新计算下一次。
func (s *Scheduler) Start() error {
	jobs, err := s.store.All()
	if err != nil {
		return fmt.Errorf("加载计划任务失败: %w", err)
	}

	now := time.Now()
	armed, dropped := 0, 0
	for i := range jobs {
		job := jobs[i]
		if !job.IsRecurring() && job.RunAt != nil && !job.RunAt.After(now) {
			s.log.WithPayload(map[string]any{"job": job.ID, "run_at": job.RunAt}).
				Warn("一次性任务已过期, 丢弃")
			_ = s.store.Delete(job.ID)
			dropped++
			continue
		}
		next, err := s.nextFire(&job, now)
		if err != nil {
			s.log.WithField("job", job.ID).WithError(err).Warn("任务表达式无法解析, 丢弃")
			_ = s.store.Delete(job.ID)
			dropped++
			continue
		}
		s.arm(&job, next)
		armed++
	}

	s.log.WithPayload(map[string]any{"armed": armed, "dropped": dropped}).Info("调度器已启动")
	return nil
}

// Running 报告调度器是否仍在运行 (Stop 之后为 false)。
func (s *Scheduler) Running() bool {
	return s.ctx.Err() == nil
}

// JobCount 返回当前武装中的任务数。
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop 停掉全部计时器。正在执行的触发允许跑完。
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Schedule 持久化并武装一个新任务。runAt 与 cron 必须恰好给一个。
// 返回任务与首次触发时间。
func (s *Scheduler) Schedule(ctx context.Context, instruction, label string, runAt *time.Time, cron string) (*models.ScheduledJob, time.Time, error) {
	if (runAt == nil) == (cron == "") {
		return nil, time.Time{}, errors.New("必须且只能提供 run_at 或 cron 之一")
	}

	job := &models.ScheduledJob{
		ID:          uuid.NewString(),
		Label:       label,
		Instruction: instruction,
		Cron:        cron,
		RunAt:       runAt,
		CreatedAt:   time.Now(),
	}

	next, err := s.nextFire(job, time.Now())
	if err != nil {
		return nil, time.Time{}, err
	}
	if !job.IsRecurring() && !next.After(time.Now()) {
		return nil, time.Time{}, fmt.Errorf("run_at %s 已经过去", next.Format(time.RFC3339))
	}

	// 先落库再武装: 进程在两步之间挂掉宁可重启后多触发一次,
	// 也不能确认了却没记下来。
	if err := s.store.Save(job); err != nil {
		return nil, time.Time{}, fmt.Errorf("持久化任务失败: %w", err)
	}
	s.arm(job, next)

	s.log.WithPayload(map[string]any{"job": job.ID, "label": label, "next": next}).Info("任务已调度")
	return job, next, nil
}

// Cancel 停掉计时器并删除持久化记录。
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrJobNotFound
		}
		return err
	}
	s.log.WithField("job", id).Info("任务已取消")
	return nil
}

// List 返回全部任务及各自的下一次触发时间。
func (s *Scheduler) List() ([]models.JobInfo, error) {
	jobs, err := s.store.All()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	infos := make([]models.JobInfo, 0, len(jobs))
	for i := range jobs {
		job := jobs[i]
		next, err := s.nextFire(&job, now)
		if err != nil {
			continue
		}
		trigger := job.Cron
		if !job.IsRecurring() {
			trigger = "once"
		}
		infos = append(infos, models.JobInfo{
			ID:      job.ID,
			Label:   job.Label,
			NextRun: next.Format(time.RFC3339),
			Trigger: trigger,
		})
	}
	return infos, nil
}

func (s *Scheduler) nextFire(job *models.ScheduledJob, after time.Time) (time.Time, error) {
	if job.IsRecurring() {
		spec, err := parseCron(job.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("cron 表达式非法: %w", err)
		}
		return spec.Next(after), nil
	}
	if job.RunAt == nil {
		return time.Time{}, errors.New("一次性任务缺少 run_at")
	}
	return *job.RunAt, nil
}

func (s *Scheduler) arm(job *models.ScheduledJob, at time.Time) {
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[job.ID]; ok {
		old.Stop()
	}
	j := *job
	s.timers[job.ID] = time.AfterFunc(delay, func() { s.fire(&j) })
}

// fire 在触发时刻执行任务指令并把结果推送给管理员。
// 执行失败或 panic 不能打断调度器: 错误也包装成结果推送出去。
// 一次性任务触发即终点, 执行 panic 也要删行; 周期任务的行永不自删。
func (s *Scheduler) fire(job *models.ScheduledJob) {
	if s.ctx.Err() != nil {
		return
	}

	if job.IsRecurring() {
		defer s.rearm(job)
	} else {
		defer s.cleanupOneShot(job.ID)
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("job", job.ID).Error(fmt.Sprintf("任务执行 panic: %v", r))
			s.deliver(job, fmt.Sprintf("ERROR: scheduled task crashed: %v", r))
		}
	}()

	s.log.WithPayload(map[string]any{"job": job.ID, "label": job.Label}).Info("任务触发")

	result, err := s.run(s.ctx, job.Instruction)
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	}
	s.deliver(job, result)
}

func (s *Scheduler) rearm(job *models.ScheduledJob) {
	next, err := s.nextFire(job, time.Now())
	if err != nil {
		// 行保留不动, 重启时 Start 会重放或按需丢弃。
		s.log.WithField("job", job.ID).WithError(err).Error("周期任务无法计算下一次触发, 等待重启重放")
		return
	}
	s.arm(job, next)
}

func (s *Scheduler) cleanupOneShot(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()
	if err := s.store.Delete(id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.WithField("job", id).WithError(err).Warn("清理任务记录失败")
	}
}

func (s *Scheduler) deliver(job *models.ScheduledJob, result string) {
	if s.notifier == nil {
		return
	}
	text := fmt.Sprintf("⏰ [%s]\n%s", job.Label, result)
	if err := s.notifier.Notify(s.ctx, text); err != nil {
		s.log.WithField("job", job.ID).WithError(err).Error("推送任务结果失败")
	}
}
