// Package vocab holds the fixed label vocabulary used by the exporters.
//
// It translates nothing. Each label has a fixed value per language. Free text
// only goes through a short find-and-replace table, and text without a
// mapping is returned unchanged.
package vocab

import (
	"strconv"
	"strings"
	"time"

	"rsjpcal/internal/model"
)

// Version identifies the vocabulary revision. Bump it whenever a label or
// replacement changes so exported documents can be told apart.
const Version = 1

// Lang selects the export language.
type Lang string

const (
	// Primary is English, the language generated titles are written in.
	Primary Lang = "en"
	// Secondary is Japanese.
	Secondary Lang = "ja"
)

// ParseLang maps user input onto a language, defaulting to Primary.
func ParseLang(s string) Lang {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ja", "jp", "japanese", "secondary":
		return Secondary
	default:
		return Primary
	}
}

// Term keys fixed phrases.
type Term string

const (
	TermCategory     Term = "category"
	TermRoomNeeded   Term = "room_needed"
	TermArrangement  Term = "arrangement_needed"
	TermParticipants Term = "participants"
	TermBuddies      Term = "buddies"
	TermStaff        Term = "staff"
	TermStaffCount   Term = "staff_count"
	TermTransport    Term = "transport"
	TermNotes        Term = "notes"
	TermLessons      Term = "lessons"
	TermTeacherRoom  Term = "teacher_room"
	TermMore         Term = "more"
	TermVehicles     Term = "vehicles"
	TermOneWay       Term = "one_way"
	TermRoundTrip    Term = "round_trip"
	TermSection      Term = "section"
)

var terms = map[Lang]map[Term]string{
	Primary: {
		TermCategory:     "Category",
		TermRoomNeeded:   "Room booking needed",
		TermArrangement:  "Arrangement needed",
		TermParticipants: "Participants",
		TermBuddies:      "Buddies",
		TermStaff:        "Accompanying staff required",
		TermStaffCount:   "Staff",
		TermTransport:    "Transport",
		TermNotes:        "Notes",
		TermLessons:      "Lessons",
		TermTeacherRoom:  "Teacher room",
		TermMore:         "more",
		TermVehicles:     "vehicles",
		TermOneWay:       "one way",
		TermRoundTrip:    "round trip",
		TermSection:      "Section",
	},
	Secondary: {
		TermCategory:     "種別",
		TermRoomNeeded:   "教室予約要",
		TermArrangement:  "手配要",
		TermParticipants: "参加人数",
		TermBuddies:      "バディ",
		TermStaff:        "引率スタッフ要",
		TermStaffCount:   "スタッフ",
		TermTransport:    "移動手段",
		TermNotes:        "備考",
		TermLessons:      "日本語授業",
		TermTeacherRoom:  "講師控室",
		TermMore:         "件",
		TermVehicles:     "台",
		TermOneWay:       "片道",
		TermRoundTrip:    "往復",
		TermSection:      "クラス",
	},
}

var categories = map[Lang]map[model.Category]string{
	Primary: {
		model.CategoryLesson:      "Lesson",
		model.CategoryOrientation: "Orientation",
		model.CategoryEscort:      "Escort",
		model.CategoryCampusTour:  "Campus Tour",
		model.CategoryCultural:    "Cultural Experience",
		model.CategoryCompany:     "Company Visit",
		model.CategoryBuddyLunch:  "Buddy Lunch",
		model.CategoryCeremony:    "Closing Ceremony",
		model.CategoryOther:       "Other",
	},
	Secondary: {
		model.CategoryLesson:      "授業",
		model.CategoryOrientation: "オリエンテーション",
		model.CategoryEscort:      "エスコート",
		model.CategoryCampusTour:  "キャンパスツアー",
		model.CategoryCultural:    "文化体験",
		model.CategoryCompany:     "企業訪問",
		model.CategoryBuddyLunch:  "バディランチ",
		model.CategoryCeremony:    "修了式",
		model.CategoryOther:       "その他",
	},
}

var transports = map[Lang]map[model.Transport]string{
	Primary: {
		model.TransportNone:     "None",
		model.TransportBus:      "Bus",
		model.TransportWalk:     "Walk",
		model.TransportOnCampus: "On campus",
	},
	Secondary: {
		model.TransportNone:     "なし",
		model.TransportBus:      "バス",
		model.TransportWalk:     "徒歩",
		model.TransportOnCampus: "学内",
	},
}

// replacements apply to free text, in order, when exporting in Secondary.
// Longer phrases come first so they win over their own substrings.
var replacements = map[Lang][][2]string{
	Secondary: {
		{"Japanese Lesson", "日本語授業"},
		{"Arrival Escort", "到着エスコート"},
		{"Orientation", "オリエンテーション"},
		{"Campus Tour", "キャンパスツアー"},
		{"Closing Ceremony", "修了式"},
		{"Teacher room", "講師控室"},
		{"Class ", "クラス"},
	},
}

var weekdays = map[Lang][7]string{
	Primary:   {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	Secondary: {"日", "月", "火", "水", "木", "金", "土"},
}

// Label returns the fixed phrase for t, falling back to Primary and then to
// the key itself.
func Label(l Lang, t Term) string {
	if v, ok := terms[l][t]; ok {
		return v
	}
	if v, ok := terms[Primary][t]; ok {
		return v
	}
	return string(t)
}

// CategoryName returns the display name of c, or c itself when unmapped.
func CategoryName(l Lang, c model.Category) string {
	if v, ok := categories[l][c]; ok {
		return v
	}
	if v, ok := categories[Primary][c]; ok {
		return v
	}
	return string(c)
}

// TransportName returns the display name of t, or t itself when unmapped.
func TransportName(l Lang, t model.Transport) string {
	if v, ok := transports[l][t]; ok {
		return v
	}
	return string(t)
}

// Text runs free text through the replacement table of l.
func Text(l Lang, s string) string {
	for _, r := range replacements[l] {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// WeekdayName returns the short weekday label.
func WeekdayName(l Lang, wd time.Weekday) string {
	names, ok := weekdays[l]
	if !ok {
		names = weekdays[Primary]
	}
	return names[wd]
}

// MonthTitle renders a month heading such as "June 2024" or "2024年6月".
func MonthTitle(l Lang, year int, month time.Month) string {
	if l == Secondary {
		return strconv.Itoa(year) + "年" + strconv.Itoa(int(month)) + "月"
	}
	return month.String() + " " + strconv.Itoa(year)
}

// More renders an overflow marker such as "+3 more" or "+3件".
func More(l Lang, n int) string {
	if l == Secondary {
		return "+" + strconv.Itoa(n) + Label(l, TermMore)
	}
	return "+" + strconv.Itoa(n) + " " + Label(l, TermMore)
}
