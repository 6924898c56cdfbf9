// Package specialdays lists upcoming named retail events.
package specialdays

import (
	"sort"
	"time"

	"campaign-engine/internal/model"
)

const dateLayout = "2006-01-02"

type rule struct {
	event string
	on    func(year int) time.Time
}

func fixed(month time.Month, day int) func(int) time.Time {
	return func(year int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}

// nthWeekday returns the n-th given weekday of a month (n starts at 1).
func nthWeekday(month time.Month, weekday time.Weekday, n int) func(int) time.Time {
	return func(year int) time.Time {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		offset := (int(weekday) - int(first.Weekday()) + 7) % 7
		return first.AddDate(0, 0, offset+7*(n-1))
	}
}

// blackFriday is the day after the fourth Thursday of November.
func blackFriday(year int) time.Time {
	return nthWeekday(time.November, time.Thursday, 4)(year).AddDate(0, 0, 1)
}

var rules = []rule{
	{"New Year", fixed(time.January, 1)},
	{"Valentine's Day", fixed(time.February, 14)},
	{"International Women's Day", fixed(time.March, 8)},
	{"Spring Start", fixed(time.March, 21)},
	{"Children's Day", fixed(time.April, 23)},
	{"Mother's Day", nthWeekday(time.May, time.Sunday, 2)},
	{"Father's Day", nthWeekday(time.June, time.Sunday, 3)},
	{"Summer Start", fixed(time.June, 21)},
	{"Back to School", fixed(time.September, 15)},
	{"Halloween", fixed(time.October, 31)},
	{"Singles' Day", fixed(time.November, 11)},
	{"Black Friday", blackFriday},
	{"Christmas", fixed(time.December, 25)},
	{"New Year's Eve", fixed(time.December, 31)},
}

// Upcoming returns the events between today and today+daysAhead (inclusive),
// nearest first. A negative window yields nothing.
func Upcoming(today time.Time, daysAhead int) []model.SpecialDay {
	out := []model.SpecialDay{}
	if daysAhead < 0 {
		return out
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	for _, year := range []int{start.Year(), start.Year() + 1} {
		for _, r := range rules {
			d := r.on(year)
			days := int(d.Sub(start).Hours() / 24)
			if days < 0 || days > daysAhead {
				continue
			}
			out = append(out, model.SpecialDay{
				Date:      d.Format(dateLayout),
				Event:     r.event,
				DaysUntil: days,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntil < out[j].DaysUntil
	})
	return out
}
