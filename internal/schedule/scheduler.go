package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/wheelibin/lumalite/internal/models"
	"github.com/wheelibin/lumalite/internal/scenes"
)

type sceneApplier interface {
	ApplySceneByID(ctx context.Context, sceneID string) (scenes.ApplyResult, error)
}

type settingsStore interface {
	Load(ctx context.Context) models.Settings
	Save(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
}

type eventPublisher interface {
	Publish(topic string, payload any)
}

// TimerFunc arms f to run after d and returns a function that disarms it
type TimerFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Scheduler keeps one timer armed per scene schedule
type Scheduler struct {
	logger   *log.Logger
	settings settingsStore
	scenes   sceneApplier
	events   eventPublisher
	sun      SunTimes
	now      func() time.Time
	timer    TimerFunc

	mu      sync.Mutex
	tasks   map[string]func() bool
	stopped bool

	// runs of the same scene never overlap
	sceneLocksMu sync.Mutex
	sceneLocks   map[string]*sync.Mutex
}

func NewScheduler(logger *log.Logger, settings settingsStore, sceneApplier sceneApplier, events eventPublisher, sun SunTimes) *Scheduler {
	return &Scheduler{
		logger:     logger,
		settings:   settings,
		scenes:     sceneApplier,
		events:     events,
		sun:        sun,
		now:        time.Now,
		timer:      afterFunc,
		tasks:      map[string]func() bool{},
		sceneLocks: map[string]*sync.Mutex{},
	}
}

// WithClock replaces the clock and timer, nil arguments keep the defaults
func (s *Scheduler) WithClock(now func() time.Time, timer TimerFunc) *Scheduler {
	if now != nil {
		s.now = now
	}
	if timer != nil {
		s.timer = timer
	}
	return s
}

// ScheduleAll disarms every timer and arms one for the next run of each stored schedule
func (s *Scheduler) ScheduleAll(ctx context.Context) {
	// timers outlive the request that rearmed them
	ctx = context.WithoutCancel(ctx)
	settings := s.settings.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearTasks()
	if s.stopped {
		return
	}

	now := s.now()
	for _, scene := range settings.Scenes {
		for _, sch := range scene.Schedules {
			next, ok := NextRun(sch, now, s.sun)
			if !ok {
				s.logger.Debug("Schedule has no next run", "scene", scene.Name, "schedule", sch.ID, "type", sch.Type, "time", sch.Time)
				continue
			}

			sceneID, sch := scene.ID, sch
			delay := max(0, next.Sub(now))
			s.tasks[taskKey(sceneID, sch.ID)] = s.timer(delay, func() { s.fire(ctx, sceneID, sch) })
			s.logger.Info("Scheduled scene", "scene", scene.Name, "type", sch.Type, "at", next.Format("2006-01-02 15:04"))
		}
	}
}

// Pending returns the number of armed timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop disarms every timer, later calls to ScheduleAll arm nothing
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.clearTasks()
}

func (s *Scheduler) clearTasks() {
	for _, stop := range s.tasks {
		stop()
	}
	s.tasks = map[string]func() bool{}
}

func (s *Scheduler) fire(ctx context.Context, sceneID string, sch models.SceneSchedule) {
	s.runExclusive(sceneID, func() {
		s.logger.Info("Schedule fired", "scene", sceneID, "schedule", sch.ID)

		result, err := s.scenes.ApplySceneByID(ctx, sceneID)
		if err != nil {
			s.logger.Error("Error applying scheduled scene", "scene", sceneID, "err", err)
		} else {
			s.logger.Info("Applied scheduled scene", "scene", sceneID, "devices", result.AppliedDevices, "skipped", result.SkippedActions)
		}

		if sch.Type == models.ScheduleOnce {
			s.removeSchedule(ctx, sceneID, sch.ID)
		}

		if s.events != nil {
			s.events.Publish("schedule.fired", map[string]any{"sceneId": sceneID, "scheduleId": sch.ID, "ok": err == nil})
		}
	})

	s.ScheduleAll(ctx)
}

func (s *Scheduler) runExclusive(sceneID string, f func()) {
	s.sceneLocksMu.Lock()
	lock, ok := s.sceneLocks[sceneID]
	if !ok {
		lock = &sync.Mutex{}
		s.sceneLocks[sceneID] = lock
	}
	s.sceneLocksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	f()
}

func (s *Scheduler) removeSchedule(ctx context.Context, sceneID string, scheduleID string) {
	settings := s.settings.Load(ctx)
	updated := lo.Map(settings.Scenes, func(scene models.Scene, _ int) models.Scene {
		if scene.ID != sceneID {
			return scene
		}
		scene.Schedules = lo.Filter(scene.Schedules, func(sch models.SceneSchedule, _ int) bool { return sch.ID != scheduleID })
		return scene
	})
	if _, err := s.settings.Save(ctx, models.SettingsPatch{Scenes: updated}); err != nil {
		s.logger.Error("Error removing fired schedule", "scene", sceneID, "schedule", scheduleID, "err", err)
	}
}

func taskKey(sceneID string, scheduleID string) string {
	return sceneID + "/" + scheduleID
}
