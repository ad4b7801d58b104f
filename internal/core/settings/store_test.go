package settings

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/core/model"
)

func TestValidate(t *testing.T) {
	mutate := func(fn func(*model.AttendanceSettings)) model.AttendanceSettings {
		s := Defaults()
		fn(&s)
		return s
	}
	setShift := func(s *model.AttendanceSettings, fn func(*model.ShiftConfig)) {
		cfg := s.Shifts[model.ShiftMorning]
		fn(&cfg)
		s.Shifts[model.ShiftMorning] = cfg
	}

	tests := []struct {
		name      string
		settings  model.AttendanceSettings
		wantField string
	}{
		{name: "defaults", settings: Defaults()},
		{name: "start equals end", settings: mutate(func(s *model.AttendanceSettings) {
			setShift(s, func(c *model.ShiftConfig) { c.StartHour, c.EndHour = 9, 9 })
		}), wantField: "shifts.Morning.endHour"},
		{name: "overnight not supported", settings: mutate(func(s *model.AttendanceSettings) {
			setShift(s, func(c *model.ShiftConfig) { c.StartHour, c.EndHour = 22, 6 })
		}), wantField: "shifts.Morning.endHour"},
		{name: "end hour 24 allowed", settings: mutate(func(s *model.AttendanceSettings) {
			setShift(s, func(c *model.ShiftConfig) { c.StartHour, c.EndHour = 16, 24 })
		})},
		{name: "start hour out of range", settings: mutate(func(s *model.AttendanceSettings) {
			setShift(s, func(c *model.ShiftConfig) { c.StartHour = -1 })
		}), wantField: "shifts.Morning.startHour"},
		{name: "negative threshold", settings: mutate(func(s *model.AttendanceSettings) {
			setShift(s, func(c *model.ShiftConfig) { c.LateThresholdMinutes = -5 })
		}), wantField: "shifts.Morning.lateThresholdMinutes"},
		{name: "missing shift", settings: mutate(func(s *model.AttendanceSettings) {
			delete(s.Shifts, model.ShiftEvening)
		}), wantField: "shifts.Evening"},
		{name: "unknown shift", settings: mutate(func(s *model.AttendanceSettings) {
			s.Shifts["Night"] = model.ShiftConfig{StartHour: 1, EndHour: 5}
		}), wantField: "shifts.Night"},
		{name: "bad timezone", settings: mutate(func(s *model.AttendanceSettings) {
			s.Timezone = "Mars/Olympus"
		}), wantField: "timezone"},
		{name: "negative early check-in", settings: mutate(func(s *model.AttendanceSettings) {
			s.AllowEarlyCheckIn = -1
		}), wantField: "allowEarlyCheckIn"},
		{name: "bad ip", settings: mutate(func(s *model.AttendanceSettings) {
			s.AllowedIPs = []string{"not-an-ip"}
		}), wantField: "allowedIPs"},
		{name: "cidr ok", settings: mutate(func(s *model.AttendanceSettings) {
			s.AllowedIPs = []string{"10.0.0.0/8", "192.168.1.10"}
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(Normalize(tt.settings))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *model.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestNormalizeDeduplicatesIPs(t *testing.T) {
	s := Defaults()
	s.AllowedIPs = []string{" 10.0.0.1", "10.0.0.1", "", "10.0.0.2"}
	got := Normalize(s)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, got.AllowedIPs)
}

func TestIPAllowed(t *testing.T) {
	s := Defaults()
	snap, err := Build(s)
	require.NoError(t, err)
	assert.True(t, snap.IPAllowed("203.0.113.9"), "empty list admits everyone")

	s.AllowedIPs = []string{"10.1.0.0/16", "192.168.1.10"}
	snap, err = Build(s)
	require.NoError(t, err)
	assert.True(t, snap.IPAllowed("10.1.44.3"))
	assert.True(t, snap.IPAllowed("192.168.1.10"))
	assert.True(t, snap.IPAllowed("::ffff:192.168.1.10"))
	assert.False(t, snap.IPAllowed("192.168.1.11"))
	assert.False(t, snap.IPAllowed("garbage"))
}

func TestReplaceKeepsPreviousOnError(t *testing.T) {
	store, err := NewStore(Defaults())
	require.NoError(t, err)
	before := store.Snapshot()

	bad := Defaults()
	bad.Shifts[model.ShiftMorning] = model.ShiftConfig{StartHour: 18, EndHour: 9}
	_, err = store.Replace(bad, nil)
	require.Error(t, err)
	assert.Same(t, before, store.Snapshot())

	persistErr := errors.New("db down")
	_, err = store.Replace(Defaults(), func(model.AttendanceSettings) error { return persistErr })
	assert.ErrorIs(t, err, persistErr)
	assert.Same(t, before, store.Snapshot())
}

func TestReplaceSwapsWholeSnapshot(t *testing.T) {
	store, err := NewStore(Defaults())
	require.NoError(t, err)

	next := Defaults()
	next.Timezone = "UTC"
	m := next.Shifts[model.ShiftMorning]
	m.StartHour, m.EndHour = 8, 16
	next.Shifts[model.ShiftMorning] = m

	var persisted model.AttendanceSettings
	snap, err := store.Replace(next, func(s model.AttendanceSettings) error {
		persisted = s
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, snap, store.Snapshot())
	assert.Equal(t, "UTC", snap.Location().String())
	cfg, ok := snap.Shift(model.ShiftMorning)
	require.True(t, ok)
	assert.Equal(t, 8, cfg.StartHour)
	assert.Equal(t, model.ShiftMorning, persisted.Shifts[model.ShiftMorning].Name)
}

// Readers must only ever see one of the two complete documents.
func TestConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	a := Defaults()
	a.Timezone = "UTC"
	b := Defaults()
	b.Timezone = "Europe/Berlin"
	mb := b.Shifts[model.ShiftMorning]
	mb.StartHour, mb.EndHour = 7, 15
	b.Shifts[model.ShiftMorning] = mb

	store, err := NewStore(a)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	bad := make(chan string, 1)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Snapshot()
				cfg, _ := snap.Shift(model.ShiftMorning)
				tz := snap.Location().String()
				if (tz == "UTC" && cfg.StartHour != 9) || (tz == "Europe/Berlin" && cfg.StartHour != 7) {
					select {
					case bad <- tz:
					default:
					}
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		next := a
		if i%2 == 0 {
			next = b
		}
		_, err := store.Replace(next, nil)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	select {
	case tz := <-bad:
		t.Fatalf("observed a mixed snapshot for %s", tz)
	default:
	}
}

func TestRefresh(t *testing.T) {
	store, err := NewStore(Defaults())
	require.NoError(t, err)
	before := store.Snapshot()

	snap, err := store.Refresh(func() (*model.AttendanceSettings, error) { return nil, nil })
	require.NoError(t, err)
	assert.Same(t, before, snap)

	_, err = store.Refresh(func() (*model.AttendanceSettings, error) { return nil, errors.New("db down") })
	assert.Error(t, err)
	assert.Same(t, before, store.Snapshot())

	invalid := Defaults()
	invalid.Timezone = "Mars/Olympus"
	_, err = store.Refresh(func() (*model.AttendanceSettings, error) { return &invalid, nil })
	assert.Error(t, err)
	assert.Same(t, before, store.Snapshot())

	next := Defaults()
	next.Timezone = "Europe/Bucharest"
	snap, err = store.Refresh(func() (*model.AttendanceSettings, error) { return &next, nil })
	require.NoError(t, err)
	assert.Same(t, snap, store.Snapshot())
	assert.Equal(t, "Europe/Bucharest", snap.Location().String())
}
