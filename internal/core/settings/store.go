// Package settings holds the shift configuration and global attendance
// settings as an immutable snapshot that is swapped atomically on update.
package settings

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata" // timezone names must resolve on minimal images

	"attendance.service/internal/core/model"
)

// Snapshot is a validated, read-only view of the settings. Never mutate it.
type Snapshot struct {
	settings model.AttendanceSettings
	location *time.Location
}

// Settings returns a copy of the settings document.
func (s *Snapshot) Settings() model.AttendanceSettings { return s.settings.Clone() }

// Global returns the settings shared by all shifts.
func (s *Snapshot) Global() model.GlobalSettings {
	g := s.settings.GlobalSettings
	g.AllowedIPs = append([]string(nil), g.AllowedIPs...)
	return g
}

// Location is the timezone all hour arithmetic runs in.
func (s *Snapshot) Location() *time.Location { return s.location }

// Shift returns the configuration of a shift.
func (s *Snapshot) Shift(name model.ShiftName) (model.ShiftConfig, bool) {
	cfg, ok := s.settings.Shifts[name]
	return cfg, ok
}

// IPAllowed reports whether ip may record attendance. An empty allow-list
// admits everyone.
func (s *Snapshot) IPAllowed(ip string) bool {
	if len(s.settings.AllowedIPs) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, allowed := range s.settings.AllowedIPs {
		if strings.Contains(allowed, "/") {
			if p, err := netip.ParsePrefix(allowed); err == nil && p.Contains(addr) {
				return true
			}
			continue
		}
		if a, err := netip.ParseAddr(allowed); err == nil && a.Unmap() == addr {
			return true
		}
	}
	return false
}

// Build validates a settings document and turns it into a snapshot.
func Build(set model.AttendanceSettings) (*Snapshot, error) {
	set = Normalize(set)
	loc, err := Validate(set)
	if err != nil {
		return nil, err
	}
	return &Snapshot{settings: set, location: loc}, nil
}

// Normalize trims and de-duplicates the allow-list and fills in shift names.
func Normalize(set model.AttendanceSettings) model.AttendanceSettings {
	set = set.Clone()
	for name, cfg := range set.Shifts {
		cfg.Name = name
		set.Shifts[name] = cfg
	}
	seen := make(map[string]struct{}, len(set.AllowedIPs))
	ips := set.AllowedIPs[:0]
	for _, ip := range set.AllowedIPs {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}
		ips = append(ips, ip)
	}
	if ips == nil {
		ips = []string{}
	}
	set.AllowedIPs = ips
	set.Timezone = strings.TrimSpace(set.Timezone)
	return set
}

// Validate checks every invariant of the document and resolves its timezone.
func Validate(set model.AttendanceSettings) (*time.Location, error) {
	for _, name := range model.ShiftNames {
		cfg, ok := set.Shifts[name]
		if !ok {
			return nil, &model.ConfigurationError{Field: "shifts." + string(name), Reason: "missing"}
		}
		if err := validateShift(name, cfg); err != nil {
			return nil, err
		}
	}
	for name := range set.Shifts {
		if !name.Valid() {
			return nil, &model.ConfigurationError{Field: "shifts." + string(name), Reason: "unknown shift"}
		}
	}
	if set.AllowEarlyCheckIn < 0 {
		return nil, &model.ConfigurationError{Field: "allowEarlyCheckIn", Reason: "must be >= 0"}
	}
	if set.Timezone == "" {
		return nil, &model.ConfigurationError{Field: "timezone", Reason: "required"}
	}
	loc, err := time.LoadLocation(set.Timezone)
	if err != nil {
		return nil, &model.ConfigurationError{Field: "timezone", Reason: err.Error()}
	}
	for _, ip := range set.AllowedIPs {
		if strings.Contains(ip, "/") {
			if _, err := netip.ParsePrefix(ip); err != nil {
				return nil, &model.ConfigurationError{Field: "allowedIPs", Reason: fmt.Sprintf("%q is not a CIDR prefix", ip)}
			}
			continue
		}
		if _, err := netip.ParseAddr(ip); err != nil {
			return nil, &model.ConfigurationError{Field: "allowedIPs", Reason: fmt.Sprintf("%q is not an IP address", ip)}
		}
	}
	return loc, nil
}

func validateShift(name model.ShiftName, cfg model.ShiftConfig) error {
	field := func(f string) string { return fmt.Sprintf("shifts.%s.%s", name, f) }
	if cfg.StartHour < 0 || cfg.StartHour > 23 {
		return &model.ConfigurationError{Field: field("startHour"), Reason: "must be within 0..23"}
	}
	if cfg.EndHour <= cfg.StartHour || cfg.EndHour > 24 {
		return &model.ConfigurationError{Field: field("endHour"), Reason: "must satisfy startHour < endHour <= 24"}
	}
	nonNegative := map[string]int{
		"lateThresholdMinutes":       cfg.LateThresholdMinutes,
		"earlyLeaveThresholdMinutes": cfg.EarlyLeaveThresholdMinutes,
		"noCheckoutLateMinutes":      cfg.NoCheckoutLateMinutes,
		"minHoursForPresent":         cfg.MinHoursForPresent,
	}
	for f, v := range nonNegative {
		if v < 0 {
			return &model.ConfigurationError{Field: field(f), Reason: "must be >= 0"}
		}
	}
	return nil
}

// Store publishes the current snapshot. Reads are lock-free; writers are
// serialized and replace the whole snapshot in one swap.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore validates the initial settings. An error here is fatal at startup.
func NewStore(initial model.AttendanceSettings) (*Store, error) {
	snap, err := Build(initial)
	if err != nil {
		return nil, err
	}
	s := &Store{}
	s.current.Store(snap)
	return s, nil
}

// Snapshot returns the snapshot in effect right now.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace validates next, hands it to persist, and publishes it only once
// persist succeeds. On any error the previous snapshot stays in effect.
func (s *Store) Replace(next model.AttendanceSettings, persist func(model.AttendanceSettings) error) (*Snapshot, error) {
	snap, err := Build(next)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if persist != nil {
		if err := persist(snap.Settings()); err != nil {
			return nil, err
		}
	}
	s.current.Store(snap)
	return snap, nil
}

// Refresh swaps in the document load returns, reading it while holding the
// writer lock so a concurrent Replace cannot be overwritten by an older copy.
// A nil document keeps the current snapshot.
func (s *Store) Refresh(load func() (*model.AttendanceSettings, error)) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := load()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return s.current.Load(), nil
	}
	snap, err := Build(*doc)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}
