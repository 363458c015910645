package planner

import (
	"context"
	"io"

	"rsjpcal/internal/export"
	"rsjpcal/internal/ics"
	"rsjpcal/internal/model"
	"rsjpcal/internal/vocab"
)

// ExportOptions are the defaults applied to every export. A per-call
// language overrides Lang when set.
type ExportOptions struct {
	Lang vocab.Lang
	Feed ics.FeedOptions
	Grid export.GridOptions
}

func (s *Service) lang(l vocab.Lang) vocab.Lang {
	if l != "" {
		return l
	}
	if s.exports.Lang != "" {
		return s.exports.Lang
	}
	return vocab.Primary
}

func (s *Service) snapshot(ctx context.Context, programID string) (model.Program, []model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, programID)
}

// ExportCSV writes the tabular export of a program.
func (s *Service) ExportCSV(ctx context.Context, programID string, w io.Writer) error {
	p, events, err := s.snapshot(ctx, programID)
	if err != nil {
		return err
	}
	return export.WriteTabular(w, p, events)
}

// ExportFeed writes the calendar feed of a program.
func (s *Service) ExportFeed(ctx context.Context, programID string, lang vocab.Lang, w io.Writer) error {
	p, events, err := s.snapshot(ctx, programID)
	if err != nil {
		return err
	}
	opts := s.exports.Feed
	opts.Lang = s.lang(lang)
	return ics.WriteFeed(w, p, events, opts)
}

// ExportGrid writes the printable month grid of a program.
func (s *Service) ExportGrid(ctx context.Context, programID string, lang vocab.Lang, w io.Writer) error {
	p, events, err := s.snapshot(ctx, programID)
	if err != nil {
		return err
	}
	opts := s.exports.Grid
	opts.Lang = s.lang(lang)
	return export.WriteGrid(w, p, events, opts)
}
