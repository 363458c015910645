package export

import (
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"rsjpcal/internal/civil"
	"rsjpcal/internal/model"
	"rsjpcal/internal/schedule"
	"rsjpcal/internal/vocab"
)

// DefaultMaxEventsPerDay caps non-lesson lines per grid cell.
const DefaultMaxEventsPerDay = 4

// GridOptions controls grid rendering.
type GridOptions struct {
	Lang vocab.Lang
	// SundayFirst starts each week on Sunday instead of Monday.
	SundayFirst bool
	// MaxEventsPerDay <= 0 means DefaultMaxEventsPerDay.
	MaxEventsPerDay int
}

// GridDocument is the view model behind the grid template.
type GridDocument struct {
	Lang         string
	Title        string
	Subtitle     string
	Weekdays     []string
	Months       []GridMonth
	VocabVersion int
}

// GridMonth is one month section, as rows of seven cells.
type GridMonth struct {
	Title string
	Weeks [][]GridCell
}

// GridCell is one day, or a blank filler when Date is empty.
type GridCell struct {
	Date    string
	Day     int
	InRange bool
	Lessons *LessonSummary
	Items   []string
	More    string
}

// LessonSummary collapses all lesson events of one day.
type LessonSummary struct {
	Heading      string
	Sections     []string
	TeacherRooms string
}

func (o GridOptions) weekStart() time.Weekday {
	if o.SundayFirst {
		return time.Sunday
	}
	return time.Monday
}

// WriteGrid renders the program as a self-contained HTML document with one
// month grid per month touched by its date range.
func WriteGrid(w io.Writer, p model.Program, events []model.Event, opts GridOptions) error {
	return gridTemplate.Execute(w, BuildGrid(p, events, opts))
}

// BuildGrid computes the grid view model.
func BuildGrid(p model.Program, events []model.Event, opts GridOptions) GridDocument {
	if opts.Lang == "" {
		opts.Lang = vocab.Primary
	}
	if opts.MaxEventsPerDay <= 0 {
		opts.MaxEventsPerDay = DefaultMaxEventsPerDay
	}

	doc := GridDocument{
		Lang:         string(opts.Lang),
		Title:        vocab.Text(opts.Lang, p.Name),
		Subtitle:     p.StartDate + " – " + p.EndDate,
		VocabVersion: vocab.Version,
	}
	for i := 0; i < 7; i++ {
		doc.Weekdays = append(doc.Weekdays, vocab.WeekdayName(opts.Lang, (opts.weekStart()+time.Weekday(i))%7))
	}

	perDay := make(map[string][]model.Event)
	for _, e := range model.SortEvents(model.ForProgram(events, p.ID)) {
		perDay[e.Date] = append(perDay[e.Date], e)
	}

	for _, m := range civil.MonthsBetween(p.StartDate, p.EndDate) {
		doc.Months = append(doc.Months, buildMonth(p, m, perDay, opts))
	}
	return doc
}

func buildMonth(p model.Program, m civil.Month, perDay map[string][]model.Event, opts GridOptions) GridMonth {
	days := m.Days()
	wd, _ := civil.Weekday(days[0])
	lead := (int(wd) - int(opts.weekStart()) + 7) % 7

	cells := make([]GridCell, lead, lead+len(days)+6)
	for i, date := range days {
		cells = append(cells, buildCell(p, date, i+1, perDay[date], opts))
	}
	for len(cells)%7 != 0 {
		cells = append(cells, GridCell{})
	}

	gm := GridMonth{Title: vocab.MonthTitle(opts.Lang, m.Year, m.Month)}
	for i := 0; i < len(cells); i += 7 {
		gm.Weeks = append(gm.Weeks, cells[i:i+7])
	}
	return gm
}

func buildCell(p model.Program, date string, day int, events []model.Event, opts GridOptions) GridCell {
	cell := GridCell{
		Date:    date,
		Day:     day,
		InRange: date >= p.StartDate && date <= p.EndDate,
	}

	var lessons, others []model.Event
	for _, e := range events {
		if e.Category == model.CategoryLesson {
			lessons = append(lessons, e)
		} else {
			others = append(others, e)
		}
	}

	if len(lessons) > 0 {
		cell.Lessons = summarizeLessons(p, lessons, opts.Lang)
	}

	for i, e := range others {
		if i == opts.MaxEventsPerDay {
			cell.More = vocab.More(opts.Lang, len(others)-i)
			break
		}
		cell.Items = append(cell.Items, e.StartTime+" "+vocab.Text(opts.Lang, e.Title))
	}
	return cell
}

// summarizeLessons expects lessons in canonical order.
func summarizeLessons(p model.Program, lessons []model.Event, lang vocab.Lang) *LessonSummary {
	start, end := lessons[0].StartTime, lessons[0].EndTime
	rooms := make(map[int]string)
	names := make(map[int]string)
	var order []int
	var teacherRooms []string
	seenTeacher := make(map[string]bool)

	for _, e := range lessons {
		if e.StartTime < start {
			start = e.StartTime
		}
		if e.EndTime > end {
			end = e.EndTime
		}
		if _, ok := rooms[e.Section]; !ok {
			rooms[e.Section] = e.Location
			names[e.Section] = sectionName(p, e, lang)
			order = append(order, e.Section)
		}
		if tr, ok := strings.CutPrefix(e.Notes, schedule.TeacherRoomNotePrefix); ok {
			tr = strings.TrimSpace(tr)
			if tr != "" && !seenTeacher[tr] {
				seenTeacher[tr] = true
				teacherRooms = append(teacherRooms, tr)
			}
		}
	}
	sort.Ints(order)

	s := &LessonSummary{
		Heading: vocab.Label(lang, vocab.TermLessons) + " " + start + "–" + end,
	}
	for _, idx := range order {
		line := names[idx]
		if rooms[idx] != "" {
			line += ": " + rooms[idx]
		}
		s.Sections = append(s.Sections, line)
	}
	if len(teacherRooms) > 0 {
		s.TeacherRooms = vocab.Label(lang, vocab.TermTeacherRoom) + ": " + teacherRooms[0]
		if len(teacherRooms) > 1 {
			s.TeacherRooms += " " + vocab.More(lang, len(teacherRooms)-1)
		}
	}
	return s
}

// sectionName labels a lesson section by the program's class name. Lessons
// without a section index fall back to their own title.
func sectionName(p model.Program, e model.Event, lang vocab.Lang) string {
	if e.Section <= 0 {
		return vocab.Text(lang, e.Title)
	}
	sections := p.Lessons.SectionsFor(e.Section)
	return vocab.Text(lang, sections[e.Section-1].ClassName)
}

var gridTemplate = template.Must(template.New("grid").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="generator" content="rsjpcal vocab/{{.VocabVersion}}">
<title>{{.Title}}</title>
<style>
@page { size: A4 landscape; margin: 10mm; }
body { font-family: "Noto Sans JP", "Hiragino Sans", sans-serif; font-size: 9pt; color: #111; margin: 0; }
header { margin-bottom: 6mm; }
h1 { font-size: 16pt; margin: 0; }
.range { color: #555; }
section.month { page-break-after: always; break-after: page; }
section.month:last-child { page-break-after: auto; break-after: auto; }
h2 { font-size: 13pt; margin: 0 0 2mm; }
table { width: 100%; border-collapse: collapse; table-layout: fixed; }
th { background: #eee; border: 1px solid #999; padding: 1mm; }
td { border: 1px solid #999; vertical-align: top; height: 28mm; padding: 1mm; overflow: hidden; }
td.blank { background: #fafafa; }
td.out { color: #aaa; background: #f4f4f4; }
.day { font-weight: bold; }
.lessons { background: #e8f0ff; border-radius: 1mm; padding: 0.5mm 1mm; margin: 0.5mm 0; }
.lessons .head { font-weight: bold; }
.teacher { color: #335; }
ul { list-style: none; margin: 0; padding: 0; }
.more { color: #666; font-style: italic; }
</style>
</head>
<body data-ready="true">
<header>
<h1>{{.Title}}</h1>
<div class="range">{{.Subtitle}}</div>
</header>
{{range .Months}}<section class="month">
<h2>{{.Title}}</h2>
<table>
<thead><tr>{{range $.Weekdays}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Weeks}}<tr>{{range .}}{{if .Date}}<td class="{{if .InRange}}in{{else}}out{{end}}" data-date="{{.Date}}">
<div class="day">{{.Day}}</div>
{{with .Lessons}}<div class="lessons"><div class="head">{{.Heading}}</div>{{range .Sections}}<div>{{.}}</div>{{end}}{{if .TeacherRooms}}<div class="teacher">{{.TeacherRooms}}</div>{{end}}</div>
{{end}}{{if .Items}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}{{if .More}}<div class="more">{{.More}}</div>{{end}}
</td>{{else}}<td class="blank"></td>{{end}}{{end}}</tr>
{{end}}</tbody>
</table>
</section>
{{end}}</body>
</html>
`))
