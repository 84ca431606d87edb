// Package jobs управляет фоновыми задачами (cron).
// scheduler.go: периодические задачи по расписанию и разовые отложенные задачи.
// Разовые задачи с одним именем склеиваются: пока задача ждёт запуска,
// повторная постановка ничего не добавляет.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Handler — обработчик задачи. data — параметры из Enqueue (nil для периодических).
type Handler func(ctx context.Context, data map[string]string) error

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	debounce time.Duration

	mu       sync.Mutex
	ctx      context.Context
	handlers map[string]Handler
	pending  map[string]cron.EntryID
}

// NewScheduler создаёт планировщик в заданном часовом поясе.
// debounce — задержка разовых задач, за это время повторные постановки склеиваются.
func NewScheduler(loc *time.Location, debounce time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		debounce: debounce,
		ctx:      context.Background(),
		handlers: make(map[string]Handler),
		pending:  make(map[string]cron.EntryID),
	}
}

// Register регистрирует обработчик задачи.
func (s *Scheduler) Register(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = h
}

// Every запускает задачу по cron-расписанию ("*/30 * * * *").
func (s *Scheduler) Every(spec, name string) error {
	if !s.registered(name) {
		return fmt.Errorf("задача %s не зарегистрирована", name)
	}
	if _, err := s.cron.AddFunc(spec, func() {
		s.run(name, "cron", nil)
	}); err != nil {
		return fmt.Errorf("некорректное расписание %q для %s: %w", spec, name, err)
	}
	log.WithFields(log.Fields{"job": name, "spec": spec}).Info("[CRON] Задача добавлена")
	return nil
}

// Enqueue ставит разовую задачу. Не ждёт выполнения.
func (s *Scheduler) Enqueue(name string, runAt time.Time, data map[string]string) error {
	if !s.registered(name) {
		return fmt.Errorf("задача %s не зарегистрирована", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[name]; ok {
		log.WithField("job", name).Debug("[CRON] Задача уже ждёт запуска, склеиваем")
		return nil
	}

	jobID := uuid.NewString()
	at := runAt.Add(s.debounce)
	s.pending[name] = s.cron.Schedule(&onceSchedule{at: at}, cron.FuncJob(func() {
		s.runOnce(name, jobID, data)
	}))
	log.WithFields(log.Fields{"job": name, "job_id": jobID, "at": at.Format(time.RFC3339)}).Debug("[CRON] Разовая задача поставлена")
	return nil
}

// Pending — разовая задача ждёт запуска.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[name]
	return ok
}

// Start запускает планировщик. ctx передаётся обработчикам.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	log.Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) registered(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[name]
	return ok
}

func (s *Scheduler) runOnce(name, jobID string, data map[string]string) {
	s.mu.Lock()
	if id, ok := s.pending[name]; ok {
		s.cron.Remove(id)
		delete(s.pending, name)
	}
	s.mu.Unlock()
	s.run(name, jobID, data)
}

func (s *Scheduler) run(name, jobID string, data map[string]string) {
	s.mu.Lock()
	h := s.handlers[name]
	ctx := s.ctx
	s.mu.Unlock()

	logger := log.WithFields(log.Fields{"job": name, "job_id": jobID})
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("[CRON] Паника в задаче")
		}
	}()

	start := time.Now()
	if err := h(ctx, data); err != nil {
		logger.WithError(err).Error("[CRON] Ошибка задачи")
		return
	}
	logger.WithField("duration", time.Since(start).String()).Debug("[CRON] Задача выполнена")
}

// onceSchedule срабатывает один раз. Первый вызов Next отдаёт момент запуска,
// дальше нулевое время, и cron больше не запускает запись.
type onceSchedule struct {
	mu    sync.Mutex
	at    time.Time
	fired bool
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fired {
		return time.Time{}
	}
	o.fired = true
	return o.at
}
