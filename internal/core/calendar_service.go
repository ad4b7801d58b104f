package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/core/calendar"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
)

// CalendarService keeps the calendar store and its repository in step. Every
// write persists first and publishes the new snapshot only on success.
type CalendarService struct {
	repo  repository.CalendarRepository
	store *calendar.Store
	now   func() time.Time
	newID func() string
}

func NewCalendarService(repo repository.CalendarRepository, store *calendar.Store) *CalendarService {
	return &CalendarService{
		repo:  repo,
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (s *CalendarService) WithClock(now func() time.Time) *CalendarService {
	s.now = now
	return s
}

// LoadCalendar reads entries and the weekly pattern from storage. When no
// pattern was ever saved, fallback is stored and used.
func LoadCalendar(ctx context.Context, repo repository.CalendarRepository, fallback model.WeeklyPattern) (*calendar.Store, error) {
	entries, err := repo.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar entries: %w", err)
	}
	pattern, ok, err := repo.WorkingDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working days: %w", err)
	}
	if !ok {
		pattern = fallback
		if err := repo.SaveWorkingDays(ctx, pattern, "system"); err != nil {
			return nil, fmt.Errorf("failed to save default working days: %w", err)
		}
	}
	return calendar.NewStore(calendar.New(pattern, entries)), nil
}

// EntryInput is the editable part of a calendar entry.
type EntryInput struct {
	Title       string
	Description string
	Type        model.EntryType
	Color       string
	StartDate   time.Time
	EndDate     time.Time
	IsFullDay   *bool
	Status      model.EntryStatus
	Location    string
	Recurrence  model.Recurrence
}

func (in EntryInput) apply(e model.CalendarEntry) model.CalendarEntry {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Type = in.Type
	e.Color = in.Color
	e.StartDate = model.DateOf(in.StartDate)
	e.EndDate = model.DateOf(in.EndDate)
	e.IsFullDay = true
	if in.IsFullDay != nil {
		e.IsFullDay = *in.IsFullDay
	}
	e.Status = in.Status
	if e.Status == "" {
		e.Status = model.EntryUpcoming
	}
	e.Location = in.Location
	e.Recurrence = in.Recurrence
	if e.Recurrence == "" {
		e.Recurrence = model.RecurNone
	}
	return e
}

func (s *CalendarService) Calendar() *calendar.Calendar { return s.store.Calendar() }

func (s *CalendarService) List(f calendar.Filter) ([]calendar.Occurrence, error) {
	return s.store.Calendar().Between(f)
}

func (s *CalendarService) Get(id string) (model.CalendarEntry, error) {
	e, ok := s.store.Calendar().Entry(id)
	if !ok {
		return model.CalendarEntry{}, model.ErrEntryNotFound
	}
	return e, nil
}

// Resolve explains whether date is a working day.
func (s *CalendarService) Resolve(date time.Time) calendar.DayResolution {
	return s.store.Calendar().Resolve(date)
}

// Create validates and stores a new entry. An inverted date range fails with
// a RangeError and nothing is stored.
func (s *CalendarService) Create(ctx context.Context, in EntryInput, actor string) (model.CalendarEntry, error) {
	now := s.now().UTC()
	e := in.apply(model.CalendarEntry{ID: s.newID(), CreatedBy: actor, CreatedAt: now, UpdatedAt: now})
	if err := calendar.Validate(e); err != nil {
		return model.CalendarEntry{}, err
	}

	_, err := s.store.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		if err := s.repo.CreateEntry(ctx, e); err != nil {
			return nil, err
		}
		return cur.WithEntry(e), nil
	})
	if err != nil {
		return model.CalendarEntry{}, err
	}

	log.Ctx(ctx).Info().Str("entry_id", e.ID).Str("type", string(e.Type)).Str("actor", actor).Msg("Calendar entry created")
	return e, nil
}

// Update replaces the editable fields of an entry. Its creation time, and so
// its place in the precedence order, is kept.
func (s *CalendarService) Update(ctx context.Context, id string, in EntryInput, actor string) (model.CalendarEntry, error) {
	var updated model.CalendarEntry
	_, err := s.store.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		orig, ok := cur.Entry(id)
		if !ok {
			return nil, model.ErrEntryNotFound
		}
		updated = in.apply(orig)
		updated.UpdatedAt = s.now().UTC()
		if err := calendar.Validate(updated); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateEntry(ctx, updated); err != nil {
			return nil, err
		}
		return cur.WithEntry(updated), nil
	})
	if err != nil {
		return model.CalendarEntry{}, err
	}

	log.Ctx(ctx).Info().Str("entry_id", id).Str("actor", actor).Msg("Calendar entry updated")
	return updated, nil
}

func (s *CalendarService) Delete(ctx context.Context, id, actor string) error {
	_, err := s.store.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		next, ok := cur.WithoutEntry(id)
		if !ok {
			return nil, model.ErrEntryNotFound
		}
		if err := s.repo.DeleteEntry(ctx, id); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("entry_id", id).Str("actor", actor).Msg("Calendar entry deleted")
	return nil
}

func (s *CalendarService) WorkingDays() model.WeeklyPattern {
	return s.store.Calendar().Pattern()
}

func (s *CalendarService) SetWorkingDays(ctx context.Context, p model.WeeklyPattern, actor string) (model.WeeklyPattern, error) {
	_, err := s.store.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		if err := s.repo.SaveWorkingDays(ctx, p, actor); err != nil {
			return nil, err
		}
		return cur.WithPattern(p), nil
	})
	if err != nil {
		return model.WeeklyPattern{}, err
	}
	log.Ctx(ctx).Info().Ints("working_days", p.Days()).Str("actor", actor).Msg("Working days updated")
	return p, nil
}

// Seed stores sample entries. Entries whose title and start date already
// exist are skipped so seeding twice is harmless.
func (s *CalendarService) Seed(ctx context.Context, entries []model.CalendarEntry, actor string) ([]model.CalendarEntry, error) {
	var created []model.CalendarEntry
	_, err := s.store.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		seen := map[string]bool{}
		for _, e := range cur.Entries() {
			seen[seedKey(e)] = true
		}
		next := cur
		for _, e := range entries {
			if seen[seedKey(e)] {
				continue
			}
			now := s.now().UTC()
			e.ID, e.CreatedBy, e.CreatedAt, e.UpdatedAt = s.newID(), actor, now, now
			if err := calendar.Validate(e); err != nil {
				return nil, err
			}
			if err := s.repo.CreateEntry(ctx, e); err != nil {
				return nil, err
			}
			seen[seedKey(e)] = true
			created = append(created, e)
			next = next.WithEntry(e)
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Int("created", len(created)).Str("actor", actor).Msg("Calendar seeded")
	return created, nil
}

func seedKey(e model.CalendarEntry) string {
	return strings.ToLower(e.Title) + "|" + model.DateOf(e.StartDate).Format(model.DateLayout)
}
