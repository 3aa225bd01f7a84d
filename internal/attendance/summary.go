package attendance

import "sort"

// Summarize groups records by course code and counts each status. The first
// record of a course supplies its name and color. Results are sorted by
// course code. Records with an unknown status are skipped so that the four
// counters always add up to TotalClasses.
func Summarize(records []Record) []CourseSummary {
	byCode := make(map[string]*CourseSummary)
	for _, r := range records {
		if !r.Status.Valid() {
			continue
		}
		s, ok := byCode[r.CourseCode]
		if !ok {
			s = &CourseSummary{CourseCode: r.CourseCode, CourseName: r.CourseName, Color: r.Color}
			byCode[r.CourseCode] = s
		}
		s.TotalClasses++
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		case StatusExcused:
			s.Excused++
		}
	}

	out := make([]CourseSummary, 0, len(byCode))
	for _, s := range byCode {
		s.AttendancePercentage = percentage(s.Attended(), s.TotalClasses-s.Excused, 100)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out
}

// Overall derives cross-course metrics. A zero thresholdPercent means unset
// and uses DefaultThreshold; other values are clamped to 1..100.
//
// SafeAbsences is the per-course max(0, ceil(total*threshold/100) - attended),
// summed. It is never negative.
func Overall(summaries []CourseSummary, thresholdPercent int) OverallStats {
	threshold := EffectiveThreshold(thresholdPercent)

	var st OverallStats
	for _, s := range summaries {
		st.TotalClasses += s.TotalClasses
		st.AttendedClasses += s.Attended()
		if s.AttendancePercentage < threshold {
			st.SubjectsAtRisk++
		}
		needed := ceilDiv(s.TotalClasses*threshold, 100)
		if spare := needed - s.Attended(); spare > 0 {
			st.SafeAbsences += spare
		}
	}
	st.OverallAttendance = percentage(st.AttendedClasses, st.TotalClasses, 0)
	return st
}

// DashboardAttendance is the single pooled ratio shown on the dashboard:
// attended over all non-excused classes across every course. It differs from
// Overall, which divides by all classes and does not exclude excused ones.
func DashboardAttendance(records []Record) int {
	var attended, eligible int
	for _, r := range records {
		if !r.Status.Valid() || r.Status == StatusExcused {
			continue
		}
		eligible++
		if r.Status.Attended() {
			attended++
		}
	}
	return percentage(attended, eligible, 0)
}

// ResolveThreshold returns *configured when it is a usable percentage,
// otherwise fallback, and DefaultThreshold if fallback is unusable too.
func ResolveThreshold(configured *int, fallback int) int {
	if configured != nil && validThreshold(*configured) {
		return *configured
	}
	if validThreshold(fallback) {
		return fallback
	}
	return DefaultThreshold
}

// EffectiveThreshold maps 0 to DefaultThreshold and clamps anything else
// to 1..100.
func EffectiveThreshold(p int) int {
	switch {
	case p == 0:
		return DefaultThreshold
	case p < 1:
		return 1
	case p > 100:
		return 100
	}
	return p
}

func validThreshold(p int) bool {
	return p > 0 && p <= 100
}

// percentage is round(100*num/den) with halves rounded up, or empty when den
// is zero.
func percentage(num, den, empty int) int {
	if den <= 0 {
		return empty
	}
	return (200*num + den) / (2 * den)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
