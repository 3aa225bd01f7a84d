package attendance

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(code string, day int, status Status) Record {
	return Record{
		CourseCode: code,
		CourseName: code + " name",
		Color:      "#" + code,
		ClassDate:  time.Date(2025, 9, day, 0, 0, 0, 0, time.UTC),
		Status:     status,
	}
}

func cs101() []Record {
	return []Record{
		rec("CS101", 1, StatusPresent),
		rec("CS101", 2, StatusPresent),
		rec("CS101", 3, StatusAbsent),
		rec("CS101", 4, StatusLate),
	}
}

func TestSummarizeScenario(t *testing.T) {
	got := Summarize(cs101())
	require.Len(t, got, 1)
	assert.Equal(t, CourseSummary{
		CourseCode:           "CS101",
		CourseName:           "CS101 name",
		Color:                "#CS101",
		TotalClasses:         4,
		Present:              2,
		Absent:               1,
		Late:                 1,
		AttendancePercentage: 75,
	}, got[0])
}

func TestOverallThresholds(t *testing.T) {
	summaries := Summarize(cs101())

	tests := []struct {
		name      string
		threshold int
		want      OverallStats
	}{
		{
			name:      "at threshold is not at risk",
			threshold: 75,
			want:      OverallStats{OverallAttendance: 75, TotalClasses: 4, AttendedClasses: 3},
		},
		{
			name:      "above percentage",
			threshold: 80,
			want:      OverallStats{OverallAttendance: 75, TotalClasses: 4, AttendedClasses: 3, SubjectsAtRisk: 1, SafeAbsences: 1},
		},
		{
			name:      "unset falls back to 75",
			threshold: 0,
			want:      OverallStats{OverallAttendance: 75, TotalClasses: 4, AttendedClasses: 3},
		},
		{
			name:      "above 100 is clamped, not defaulted",
			threshold: 110,
			want:      OverallStats{OverallAttendance: 75, TotalClasses: 4, AttendedClasses: 3, SubjectsAtRisk: 1, SafeAbsences: 1},
		},
		{
			name:      "negative is clamped to 1",
			threshold: -5,
			want:      OverallStats{OverallAttendance: 75, TotalClasses: 4, AttendedClasses: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overall(summaries, tt.threshold))
		})
	}
}

func TestOverallEmpty(t *testing.T) {
	assert.Equal(t, OverallStats{}, Overall(nil, 75))
	assert.Equal(t, OverallStats{}, Overall(Summarize(nil), 75))
	assert.Empty(t, Summarize([]Record{}))
}

func TestExcusedOnlyCourseIsFullAttendance(t *testing.T) {
	got := Summarize([]Record{
		rec("MA201", 1, StatusExcused),
		rec("MA201", 2, StatusExcused),
	})
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].TotalClasses)
	assert.Equal(t, 100, got[0].AttendancePercentage)

	st := Overall(got, 75)
	assert.Zero(t, st.SubjectsAtRisk)
	assert.Equal(t, 0, st.OverallAttendance)
	assert.Equal(t, 2, st.SafeAbsences)
}

func TestExcusedLeavesDenominator(t *testing.T) {
	got := Summarize([]Record{
		rec("PH110", 1, StatusPresent),
		rec("PH110", 2, StatusAbsent),
		rec("PH110", 3, StatusExcused),
	})
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].AttendancePercentage)
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	var records []Record
	records = append(records, rec("EN100", 1, StatusPresent))
	for d := 2; d <= 8; d++ {
		records = append(records, rec("EN100", d, StatusAbsent))
	}
	got := Summarize(records)
	require.Len(t, got, 1)
	assert.Equal(t, 13, got[0].AttendancePercentage) // 12.5

	assert.Equal(t, 67, percentage(2, 3, 0))
	assert.Equal(t, 33, percentage(1, 3, 0))
	assert.Equal(t, 100, percentage(0, 0, 100))
}

func TestFirstRecordNamesCourse(t *testing.T) {
	first := rec("CS101", 1, StatusPresent)
	first.CourseName = "Intro to CS"
	second := rec("CS101", 2, StatusAbsent)
	second.CourseName = "Renamed"
	second.Color = "#000"

	got := Summarize([]Record{first, second})
	require.Len(t, got, 1)
	assert.Equal(t, "Intro to CS", got[0].CourseName)
	assert.Equal(t, "#CS101", got[0].Color)
}

func TestSummarizeSkipsUnknownStatus(t *testing.T) {
	got := Summarize([]Record{
		rec("CS101", 1, StatusPresent),
		rec("CS101", 2, Status("holiday")),
		rec("ZZ999", 1, Status("")),
	})
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].TotalClasses)
}

func TestSafeAbsencesPerCourseFloor(t *testing.T) {
	summaries := []CourseSummary{
		{CourseCode: "A", TotalClasses: 10, Present: 5, AttendancePercentage: 50},
		{CourseCode: "B", TotalClasses: 10, Present: 10, AttendancePercentage: 100},
		{CourseCode: "C", TotalClasses: 3, Present: 1, Late: 1, AttendancePercentage: 67},
	}
	// A: ceil(7.5)=8-5=3, B: 8-10<0 -> 0, C: ceil(2.25)=3-2=1
	st := Overall(summaries, 75)
	assert.Equal(t, 4, st.SafeAbsences)
	assert.Equal(t, 2, st.SubjectsAtRisk)
	assert.Equal(t, 23, st.TotalClasses)
	assert.Equal(t, 17, st.AttendedClasses)
	assert.Equal(t, 74, st.OverallAttendance)
}

func TestSummaryInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	codes := []string{"CS101", "MA201", "PH110", "EN100"}
	statuses := []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		records := make([]Record, n)
		for i := range records {
			records[i] = rec(codes[rng.Intn(len(codes))], 1+rng.Intn(28), statuses[rng.Intn(len(statuses))])
		}

		summaries := Summarize(records)
		st := Overall(summaries, 75)

		sum := 0
		for _, s := range summaries {
			assert.Positive(t, s.TotalClasses)
			assert.Equal(t, s.TotalClasses, s.Present+s.Absent+s.Late+s.Excused)
			if s.Excused == s.TotalClasses {
				assert.Equal(t, 100, s.AttendancePercentage)
			}
			sum += s.TotalClasses
		}
		assert.Equal(t, sum, st.TotalClasses)
		assert.Equal(t, n, st.TotalClasses)
		assert.GreaterOrEqual(t, st.SafeAbsences, 0)

		shuffled := append([]Record(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := Summarize(shuffled)
		assert.Equal(t, len(summaries), len(again))
		for i := range summaries {
			assert.Equal(t, summaries[i].CourseCode, again[i].CourseCode)
			assert.Equal(t, summaries[i].TotalClasses, again[i].TotalClasses)
			assert.Equal(t, summaries[i].AttendancePercentage, again[i].AttendancePercentage)
		}
	}
}

func TestDashboardAttendance(t *testing.T) {
	records := append(cs101(),
		rec("MA201", 1, StatusExcused),
		rec("MA201", 2, StatusAbsent),
	)
	// attended 3 of 5 eligible
	assert.Equal(t, 60, DashboardAttendance(records))
	assert.Equal(t, 0, DashboardAttendance(nil))
	assert.Equal(t, 0, DashboardAttendance([]Record{rec("X", 1, StatusExcused)}))

	// the pooled ratio differs from Overall, which keeps excused classes
	assert.Equal(t, 50, Overall(Summarize(records), 75).OverallAttendance)
}

func TestResolveThreshold(t *testing.T) {
	p := func(v int) *int { return &v }

	assert.Equal(t, 75, ResolveThreshold(nil, 75))
	assert.Equal(t, 80, ResolveThreshold(nil, 80))
	assert.Equal(t, 90, ResolveThreshold(p(90), 75))
	assert.Equal(t, 75, ResolveThreshold(p(0), 75))
	assert.Equal(t, 75, ResolveThreshold(p(120), 75))
	assert.Equal(t, DefaultThreshold, ResolveThreshold(nil, -1))
}

func TestEffectiveThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, EffectiveThreshold(0))
	assert.Equal(t, 1, EffectiveThreshold(-3))
	assert.Equal(t, 100, EffectiveThreshold(110))
	assert.Equal(t, 60, EffectiveThreshold(60))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "present", want: StatusPresent},
		{in: " Late ", want: StatusLate},
		{in: "EXCUSED", want: StatusExcused},
		{in: "absent", want: StatusAbsent},
		{in: "sick", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
