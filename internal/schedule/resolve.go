package schedule

import (
	"strings"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
)

// Every lesson setting is resolved through one of the chains below, first
// usable value wins:
//
//   - time of day: override → program default → built-in default
//   - duration:    override → program default → built-in default
//   - count:       override → program default, then clamped
//   - per-section: override entry → program section → placeholder label
//
// "Usable" means parseable for times, > 0 for block and ceremony lengths and
// >= 0 for breaks. Anything else is treated as absent.

// resolveTime returns the first candidate that parses as a time of day,
// as minutes since midnight.
func resolveTime(candidates ...string) int {
	for _, c := range candidates {
		if m, ok := civil.ParseTime(c); ok {
			return m
		}
	}
	return 0
}

// resolveDuration returns the first candidate that is at least min.
// Candidates are pointers so an unset override can be told apart from zero.
func resolveDuration(min int, fallback int, candidates ...*int) int {
	for _, c := range candidates {
		if c != nil && *c >= min {
			return *c
		}
	}
	return fallback
}

// resolveCount returns the override if set, otherwise the default, clamped.
func resolveCount(override *int, def int, clampFn func(int) int) int {
	if override != nil {
		return clampFn(*override)
	}
	return clampFn(def)
}

// resolveSectionText picks the override entry for section i when present and
// non-blank, otherwise the program-level value.
func resolveSectionText(override []string, i int, program string) string {
	if i < len(override) {
		if v := strings.TrimSpace(override[i]); v != "" {
			return v
		}
	}
	return program
}

// lessonDay is the fully resolved lesson plan for one date.
type lessonDay struct {
	start        int
	blockMinutes int
	breakMinutes int
	blocks       int
	sections     []model.Section
}

// lessonsApply decides whether date receives automatic lessons. An override
// always wins. Without one, lessons need the program default, a weekday and
// a date other than the first day of the program.
func lessonsApply(p model.Program, date string) bool {
	if ov, ok := p.Overrides[date]; ok {
		return ov.Enabled
	}
	return p.Lessons.Enabled && civil.IsWeekday(date) && date != p.StartDate
}

// resolveLessonDay merges the override for date, if any, over the program
// defaults.
func resolveLessonDay(p model.Program, date string) lessonDay {
	ov := p.Overrides[date]
	def := p.Lessons

	blockDefault := def.BlockMinutes
	breakDefault := def.BreakMinutes
	day := lessonDay{
		start:        resolveTime(ov.StartTime, def.StartTime, model.DefaultLessonStart),
		blockMinutes: resolveDuration(1, model.DefaultBlockMinutes, ov.BlockMinutes, &blockDefault),
		breakMinutes: resolveDuration(0, model.DefaultBreakMinutes, ov.BreakMinutes, &breakDefault),
		blocks:       resolveCount(ov.BlockCount, def.BlockCount, model.ClampBlocks),
	}

	n := resolveCount(ov.ClassCount, def.ClassCount, model.ClampSections)
	sections := def.SectionsFor(n)
	for i := range sections {
		sections[i].Classroom = resolveSectionText(ov.Classrooms, i, sections[i].Classroom)
		sections[i].TeacherRoom = resolveSectionText(ov.TeacherRooms, i, strings.TrimSpace(sections[i].TeacherRoom))
	}
	day.sections = sections
	return day
}

// splitHeadcount spreads total over n sections; the first sections absorb
// the remainder.
func splitHeadcount(total, n int) []int {
	out := make([]int, n)
	if n == 0 || total <= 0 {
		return out
	}
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
