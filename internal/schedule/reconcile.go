package schedule

import "rsjpcal/internal/model"

// Regenerate is NewGenerator().Regenerate(stored, p).
func Regenerate(stored []model.Event, p model.Program) []model.Event {
	return NewGenerator().Regenerate(stored, p)
}

// Regenerate drops every stored Auto event of p, appends a fresh generation
// and normalizes p's events. Manual events and other programs' events pass
// through untouched. stored is not modified.
func (g *Generator) Regenerate(stored []model.Event, p model.Program) []model.Event {
	kept, _ := g.RegenerateReport(stored, p)
	return kept
}

// RegenerateReport is Regenerate that also returns what normalization
// dropped.
func (g *Generator) RegenerateReport(stored []model.Event, p model.Program) ([]model.Event, []Dropped) {
	next := make([]model.Event, 0, len(stored))
	for _, e := range stored {
		if e.ProgramID == p.ID && e.IsAuto() {
			continue
		}
		next = append(next, e)
	}
	next = append(next, g.Generate(p)...)
	return NormalizeReport(next, p.ID)
}
