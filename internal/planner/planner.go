// Package planner is the application service around the schedule core: it
// loads a program and its stored events, applies one change, and saves the
// full replacement collection back.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/ics"
	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/model"
	"rsjpcal/internal/schedule"
)

var (
	// ErrEventNotFound is returned when an event id is not in the program.
	ErrEventNotFound = errors.New("planner: event not found")
	// ErrGeneratedEvent is returned when a manual-only operation targets an
	// event owned by regeneration.
	ErrGeneratedEvent = errors.New("planner: event is generated")
	// ErrOverrideNotFound is returned when deleting a date without override.
	ErrOverrideNotFound = errors.New("planner: no override on date")
	// ErrInvalid wraps rejected input.
	ErrInvalid = errors.New("planner: invalid input")
)

// Repository persists programs and their event collections.
type Repository interface {
	Program(ctx context.Context, id string) (model.Program, error)
	Programs(ctx context.Context) ([]model.Program, error)
	SaveProgram(ctx context.Context, p model.Program) error
	DeleteProgram(ctx context.Context, id string) error
	Events(ctx context.Context, programID string) ([]model.Event, error)
	ReplaceEvents(ctx context.Context, programID string, events []model.Event) error
	Save(ctx context.Context, p model.Program, events []model.Event) error
}

// Importer produces the events a subscription contributes to a program.
type Importer interface {
	Import(ctx context.Context, sub ics.Subscription, p model.Program) ([]model.Event, error)
}

// Options configures a Service. Zero values get working defaults.
type Options struct {
	Generator *schedule.Generator
	Importer  Importer
	Now       func() time.Time
	NewID     func() string
	Exports   ExportOptions
}

// Service runs read-modify-write cycles against a Repository. Mutations are
// serialized.
type Service struct {
	repo     Repository
	gen      *schedule.Generator
	importer Importer
	now      func() time.Time
	newID    func() string
	exports  ExportOptions

	mu sync.Mutex
}

// New returns a Service over repo.
func New(repo Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		gen:      opts.Generator,
		importer: opts.Importer,
		now:      opts.Now,
		newID:    opts.NewID,
		exports:  opts.Exports,
	}
	if s.gen == nil {
		s.gen = schedule.NewGenerator()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Result is the outcome of an operation that ran normalization.
type Result struct {
	Events  []model.Event
	Dropped []schedule.Dropped
}

// ApplyProgram normalizes p, stamps it and stores it. Stored events are
// left alone; call Regenerate to rebuild the generated ones.
func (s *Service) ApplyProgram(ctx context.Context, p model.Program) (model.Program, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return model.Program{}, fmt.Errorf("%w: program id is required", ErrInvalid)
	}
	for date := range p.Overrides {
		if _, ok := civil.ParseDate(date); !ok {
			return model.Program{}, fmt.Errorf("%w: override date %q", ErrInvalid, date)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.Normalize()
	p.Touch(s.now())
	if err := s.repo.SaveProgram(ctx, p); err != nil {
		return model.Program{}, err
	}
	appLog.Info("program applied", "program", p.ID, "start", p.StartDate, "end", p.EndDate)
	return p, nil
}

// Program returns one stored program.
func (s *Service) Program(ctx context.Context, id string) (model.Program, error) {
	return s.repo.Program(ctx, id)
}

// Programs lists every stored program.
func (s *Service) Programs(ctx context.Context) ([]model.Program, error) {
	return s.repo.Programs(ctx)
}

// DeleteProgram removes a program with all of its events.
func (s *Service) DeleteProgram(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteProgram(ctx, id); err != nil {
		return err
	}
	appLog.Info("program deleted", "program", id)
	return nil
}

// SetOverride stores ov as the lesson override of date, replacing any
// previous one.
func (s *Service) SetOverride(ctx context.Context, programID, date string, ov model.LessonOverride) (model.Program, error) {
	if _, ok := civil.ParseDate(date); !ok {
		return model.Program{}, fmt.Errorf("%w: date %q", ErrInvalid, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.Program(ctx, programID)
	if err != nil {
		return model.Program{}, err
	}
	if p.Overrides == nil {
		p.Overrides = make(map[string]model.LessonOverride)
	}
	p.Overrides[date] = ov
	p.Touch(s.now())
	if err := s.repo.SaveProgram(ctx, p); err != nil {
		return model.Program{}, err
	}
	appLog.Info("override set", "program", programID, "date", date, "enabled", ov.Enabled)
	return p, nil
}

// DeleteOverride removes the override of date.
func (s *Service) DeleteOverride(ctx context.Context, programID, date string) (model.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.repo.Program(ctx, programID)
	if err != nil {
		return model.Program{}, err
	}
	if _, ok := p.Overrides[date]; !ok {
		return model.Program{}, fmt.Errorf("%s %s: %w", programID, date, ErrOverrideNotFound)
	}
	delete(p.Overrides, date)
	p.Touch(s.now())
	if err := s.repo.SaveProgram(ctx, p); err != nil {
		return model.Program{}, err
	}
	appLog.Info("override deleted", "program", programID, "date", date)
	return p, nil
}

// Regenerate replaces the generated events of a program with a fresh
// generation and saves the normalized collection.
func (s *Service) Regenerate(ctx context.Context, programID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, stored, err := s.load(ctx, programID)
	if err != nil {
		return Result{}, err
	}
	next, dropped := s.gen.RegenerateReport(stored, p)
	if err := s.repo.ReplaceEvents(ctx, p.ID, next); err != nil {
		return Result{}, err
	}
	logDropped(p.ID, dropped)
	appLog.Info("program regenerated", "program", p.ID, "events", len(next), "dropped", len(dropped))
	return Result{Events: model.SortEvents(next), Dropped: dropped}, nil
}

// Events returns a program's events in canonical order.
func (s *Service) Events(ctx context.Context, programID string) ([]model.Event, error) {
	if _, err := s.repo.Program(ctx, programID); err != nil {
		return nil, err
	}
	stored, err := s.repo.Events(ctx, programID)
	if err != nil {
		return nil, err
	}
	return model.SortEvents(model.ForProgram(stored, programID)), nil
}

// AddEvent stores e as a new manual event. The returned Result reports
// anything normalization dropped, possibly e itself.
func (s *Service) AddEvent(ctx context.Context, programID string, e model.Event) (model.Event, Result, error) {
	if err := checkEvent(e); err != nil {
		return model.Event{}, Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, stored, err := s.load(ctx, programID)
	if err != nil {
		return model.Event{}, Result{}, err
	}

	e = canonicalEvent(e)
	e.ID = s.newID()
	e.ProgramID = p.ID
	e.Origin = model.OriginManual
	if e.Kind == "" || e.Kind == model.KindAuto {
		e.Kind = model.KindManual
	}

	res, err := s.commit(ctx, p.ID, append(stored, e))
	if err != nil {
		return model.Event{}, Result{}, err
	}
	appLog.Info("event added", "program", p.ID, "event", e.ID, "date", e.Date, "category", e.Category)
	return e, res, nil
}

// UpdateEvent replaces the manual event with e.ID by e. Identity and
// provenance fields keep their stored values.
func (s *Service) UpdateEvent(ctx context.Context, programID string, e model.Event) (Result, error) {
	if err := checkEvent(e); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, stored, err := s.load(ctx, programID)
	if err != nil {
		return Result{}, err
	}
	i, err := findManual(stored, p.ID, e.ID)
	if err != nil {
		return Result{}, err
	}

	old := stored[i]
	e = canonicalEvent(e)
	e.ProgramID, e.Origin, e.Kind, e.Source = old.ProgramID, old.Origin, old.Kind, old.Source

	next := make([]model.Event, len(stored))
	copy(next, stored)
	next[i] = e

	res, err := s.commit(ctx, p.ID, next)
	if err != nil {
		return Result{}, err
	}
	appLog.Info("event updated", "program", p.ID, "event", e.ID)
	return res, nil
}

// DeleteEvent removes a manual event.
func (s *Service) DeleteEvent(ctx context.Context, programID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, stored, err := s.load(ctx, programID)
	if err != nil {
		return err
	}
	i, err := findManual(stored, p.ID, eventID)
	if err != nil {
		return err
	}

	next := make([]model.Event, 0, len(stored)-1)
	next = append(next, stored[:i]...)
	next = append(next, stored[i+1:]...)
	if err := s.repo.ReplaceEvents(ctx, p.ID, next); err != nil {
		return err
	}
	appLog.Info("event deleted", "program", p.ID, "event", eventID)
	return nil
}

// Import replaces the events a subscription contributed to its program
// with what the feed currently holds.
func (s *Service) Import(ctx context.Context, sub ics.Subscription) (Result, error) {
	if s.importer == nil {
		return Result{}, errors.New("planner: no importer configured")
	}

	// Fetch outside the lock; only the merge needs it.
	p, err := s.repo.Program(ctx, sub.ProgramID)
	if err != nil {
		return Result{}, err
	}
	imported, err := s.importer.Import(ctx, sub, p)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.repo.Events(ctx, p.ID)
	if err != nil {
		return Result{}, err
	}
	res, err := s.commit(ctx, p.ID, ics.ReplaceSource(stored, p.ID, sub.ID, imported))
	if err != nil {
		return Result{}, err
	}
	appLog.Info("subscription imported", "program", p.ID, "source", sub.ID, "events", len(imported))
	return res, nil
}

// Refresh imports every subscription and then regenerates every program.
// It keeps going past failures and returns them joined.
func (s *Service) Refresh(ctx context.Context, subs []ics.Subscription) error {
	var errs []error
	for _, sub := range subs {
		if _, err := s.Import(ctx, sub); err != nil {
			appLog.Error("refresh import failed", err, "source", sub.ID, "program", sub.ProgramID)
			errs = append(errs, fmt.Errorf("import %s: %w", sub.ID, err))
		}
	}

	programs, err := s.repo.Programs(ctx)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, p := range programs {
		if _, err := s.Regenerate(ctx, p.ID); err != nil {
			appLog.Error("refresh regenerate failed", err, "program", p.ID)
			errs = append(errs, fmt.Errorf("regenerate %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) load(ctx context.Context, programID string) (model.Program, []model.Event, error) {
	p, err := s.repo.Program(ctx, programID)
	if err != nil {
		return model.Program{}, nil, err
	}
	stored, err := s.repo.Events(ctx, programID)
	if err != nil {
		return model.Program{}, nil, err
	}
	return p, stored, nil
}

// commit normalizes next and stores it.
func (s *Service) commit(ctx context.Context, programID string, next []model.Event) (Result, error) {
	kept, dropped := schedule.NormalizeReport(next, programID)
	if err := s.repo.ReplaceEvents(ctx, programID, kept); err != nil {
		return Result{}, err
	}
	logDropped(programID, dropped)
	return Result{Events: model.SortEvents(model.ForProgram(kept, programID)), Dropped: dropped}, nil
}

func logDropped(programID string, dropped []schedule.Dropped) {
	for _, d := range dropped {
		appLog.Warn("event dropped by normalization",
			"program", programID,
			"event", d.Event.ID,
			"date", d.Event.Date,
			"title", d.Event.Title,
			"reason", string(d.Reason),
			"kept", d.KeptID,
		)
	}
}

func findManual(events []model.Event, programID, id string) (int, error) {
	for i, e := range events {
		if e.ProgramID != programID || e.ID != id {
			continue
		}
		if e.IsAuto() {
			return -1, fmt.Errorf("%s: %w", id, ErrGeneratedEvent)
		}
		return i, nil
	}
	return -1, fmt.Errorf("%s: %w", id, ErrEventNotFound)
}

func checkEvent(e model.Event) error {
	if _, ok := civil.ParseDate(e.Date); !ok {
		return fmt.Errorf("%w: date %q", ErrInvalid, e.Date)
	}
	if e.Category != "" && !e.Category.Valid() {
		return fmt.Errorf("%w: category %q", ErrInvalid, e.Category)
	}
	return nil
}

func canonicalEvent(e model.Event) model.Event {
	e.StartTime = civil.CanonicalTime(strings.TrimSpace(e.StartTime))
	e.EndTime = civil.CanonicalTime(strings.TrimSpace(e.EndTime))
	if e.Category == "" {
		e.Category = model.CategoryOther
	}
	if e.Transport == "" {
		e.Transport = model.TransportNone
	}
	if !e.IsBus() {
		e.Bus = model.BusDetails{}
	}
	return e
}
