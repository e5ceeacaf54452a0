package las

import (
	"strconv"
	"strings"
	"time"

	"github.com/webstead/aclengine/internal/acl"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// evalDayOfWeek matches the current weekday against a comma separated list
// of day names ("Mon" or "Monday", case insensitive). Time-dependent answers
// are never cacheable.
func evalDayOfWeek(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	today := timeNow().Weekday()
	matched := false
	for _, p := range splitPattern(pattern) {
		p = strings.ToLower(p)
		if len(p) > 3 {
			p = p[:3]
		}
		day, ok := dayNames[p]
		if !ok {
			return acl.EvalInvalid, acl.NotCacheable
		}
		if day == today {
			matched = true
			break
		}
	}
	return boolOutcome(matched, negate), acl.NotCacheable
}

// evalTimeOfDay matches the current clock time against comma separated
// "HHMM-HHMM" ranges. A range whose end precedes its start wraps past
// midnight, so "2200-0600" covers the night shift.
func evalTimeOfDay(attr string, cmp acl.Comparator, pattern string, subject, resource *acl.PList, authInfo, globalAuth *acl.PList, cookie *acl.Cookie) (acl.EvalOutcome, acl.Cacheability) {
	negate, ok := eqOrNE(attr, cmp)
	if !ok {
		return acl.EvalInvalid, acl.NotCacheable
	}

	now := timeNow()
	cur := now.Hour()*100 + now.Minute()

	matched := false
	for _, p := range splitPattern(pattern) {
		from, to, ok := parseClockRange(p)
		if !ok {
			return acl.EvalInvalid, acl.NotCacheable
		}
		if from <= to {
			matched = cur >= from && cur <= to
		} else {
			matched = cur >= from || cur <= to
		}
		if matched {
			break
		}
	}
	return boolOutcome(matched, negate), acl.NotCacheable
}

func parseClockRange(s string) (from, to int, ok bool) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	if from, ok = parseClock(lo); !ok {
		return 0, 0, false
	}
	if to, ok = parseClock(hi); !ok {
		return 0, 0, false
	}
	return from, to, true
}

func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v%100 > 59 || v/100 > 23 {
		return 0, false
	}
	return v, true
}
