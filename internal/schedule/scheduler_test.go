package schedule_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/lumalite/internal/models"
	"github.com/wheelibin/lumalite/internal/repos"
	"github.com/wheelibin/lumalite/internal/scenes"
	"github.com/wheelibin/lumalite/internal/schedule"
	"github.com/wheelibin/lumalite/mocks"
)

type armedTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

type fakeTimers struct {
	mu    sync.Mutex
	armed []*armedTimer
}

func (f *fakeTimers) after(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	timer := &armedTimer{delay: d, fire: fn}
	f.armed = append(f.armed, timer)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		wasArmed := !timer.stopped
		timer.stopped = true
		return wasArmed
	}
}

func (f *fakeTimers) active() []*armedTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Filter(f.armed, func(a *armedTimer, _ int) bool { return !a.stopped })
}

func (f *fakeTimers) delays() []time.Duration {
	return lo.Map(f.active(), func(a *armedTimer, _ int) time.Duration { return a.delay })
}

type schedulerFixture struct {
	scheduler *schedule.Scheduler
	settings  *repos.SettingsRepo
	applier   *mocks.MockScheduleSceneApplier
	events    *mocks.MockEventPublisher
	timers    *fakeTimers
}

func newSchedulerFixture(t *testing.T, sceneList []models.Scene) *schedulerFixture {
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	settings, err := repos.NewSettingsRepo(logger, db)
	require.NoError(t, err)
	_, err = settings.Save(context.Background(), models.SettingsPatch{Scenes: sceneList})
	require.NoError(t, err)

	f := &schedulerFixture{
		settings: settings,
		applier:  mocks.NewMockScheduleSceneApplier(t),
		events:   mocks.NewMockEventPublisher(t),
		timers:   &fakeTimers{},
	}
	f.scheduler = schedule.NewScheduler(logger, settings, f.applier, f.events, nil).
		WithClock(func() time.Time { return wednesday10am }, f.timers.after)
	return f
}

var eveningScene = models.Scene{
	ID:   "evening",
	Name: "Evening",
	Schedules: []models.SceneSchedule{
		{ID: "daily", Type: models.ScheduleDaily, Time: "18:00"},
		{ID: "tomorrow", Type: models.ScheduleOnce, Time: "07:00", Date: "2024-03-14"},
		{ID: "expired", Type: models.ScheduleOnce, Time: "07:00", Date: "2024-03-01"},
	},
}

var morningScene = models.Scene{
	ID:        "morning",
	Name:      "Morning",
	Schedules: []models.SceneSchedule{{ID: "weekly", Type: models.ScheduleWeekly, Time: "10:30", DayOfWeek: lo.ToPtr(3)}},
}

func Test_ScheduleAll(t *testing.T) {

	t.Run("should arm a timer for each schedule with a next run", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{eveningScene, morningScene})

		f.scheduler.ScheduleAll(context.Background())

		assert.Equal(t, 3, f.scheduler.Pending())
		assert.ElementsMatch(t, []time.Duration{8 * time.Hour, 21 * time.Hour, 30 * time.Minute}, f.timers.delays())
	})

	t.Run("should disarm the previous timers when rescheduling", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{eveningScene})

		f.scheduler.ScheduleAll(context.Background())
		f.scheduler.ScheduleAll(context.Background())

		assert.Len(t, f.timers.armed, 4)
		assert.Len(t, f.timers.active(), 2)
		assert.Equal(t, 2, f.scheduler.Pending())
	})

	t.Run("should arm nothing after stop", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{eveningScene})
		f.scheduler.ScheduleAll(context.Background())

		f.scheduler.Stop()
		f.scheduler.ScheduleAll(context.Background())

		assert.Equal(t, 0, f.scheduler.Pending())
		assert.Empty(t, f.timers.active())
	})
}

func Test_Fire(t *testing.T) {

	t.Run("should apply the scene, drop a once schedule and rearm", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{eveningScene})
		f.applier.On("ApplySceneByID", mock.Anything, "evening").Return(scenes.ApplyResult{AppliedDevices: 2}, nil).Once()
		f.events.On("Publish", "schedule.fired", map[string]any{"sceneId": "evening", "scheduleId": "tomorrow", "ok": true}).Once()
		f.scheduler.ScheduleAll(context.Background())

		once, found := lo.Find(f.timers.active(), func(a *armedTimer) bool { return a.delay == 21*time.Hour })
		require.True(t, found)
		once.fire()

		stored := f.settings.Load(context.Background()).Scenes
		require.Len(t, stored, 1)
		assert.Equal(t, []string{"daily", "expired"}, lo.Map(stored[0].Schedules, func(s models.SceneSchedule, _ int) string { return s.ID }))
		assert.Equal(t, []time.Duration{8 * time.Hour}, f.timers.delays())
	})

	t.Run("should keep a repeating schedule and rearm after a failed apply", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{morningScene})
		f.applier.On("ApplySceneByID", mock.Anything, "morning").Return(scenes.ApplyResult{}, errors.New("offline")).Once()
		f.events.On("Publish", "schedule.fired", map[string]any{"sceneId": "morning", "scheduleId": "weekly", "ok": false}).Once()
		f.scheduler.ScheduleAll(context.Background())

		f.timers.active()[0].fire()

		assert.Len(t, f.settings.Load(context.Background()).Scenes[0].Schedules, 1)
		assert.Equal(t, 1, f.scheduler.Pending())
		assert.Len(t, f.timers.armed, 2)
	})

	t.Run("should not rearm when stopped while firing", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{morningScene})
		f.applier.On("ApplySceneByID", mock.Anything, "morning").
			Run(func(args mock.Arguments) { f.scheduler.Stop() }).
			Return(scenes.ApplyResult{}, nil).Once()
		f.events.On("Publish", "schedule.fired", mock.Anything).Once()
		f.scheduler.ScheduleAll(context.Background())

		f.timers.active()[0].fire()

		assert.Equal(t, 0, f.scheduler.Pending())
		assert.Empty(t, f.timers.active())
	})

	t.Run("should never run the same scene twice at once", func(t *testing.T) {
		f := newSchedulerFixture(t, []models.Scene{morningScene})
		var inFlight, maxInFlight atomic.Int32
		f.applier.On("ApplySceneByID", mock.Anything, "morning").
			Run(func(args mock.Arguments) {
				n := inFlight.Add(1)
				for {
					seen := maxInFlight.Load()
					if n <= seen || maxInFlight.CompareAndSwap(seen, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				inFlight.Add(-1)
			}).
			Return(scenes.ApplyResult{}, nil).Times(4)
		f.events.On("Publish", "schedule.fired", mock.Anything).Times(4)
		f.scheduler.ScheduleAll(context.Background())
		fire := f.timers.active()[0].fire

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fire()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInFlight.Load())
		assert.Equal(t, 1, f.scheduler.Pending())
	})
}
