package shift

import (
	"sort"
	"time"

	"github.com/hitoshi/shifter/internal/model"
)

const millisPerHour = 3600000.0

// metricsFromShifts はシフト列から集計レポートを計算する純粋関数。
// 退勤済みのシフトのみを対象とする。
//   - avgHoursPerDay: 日別合計勤務時間の総和（時間）を観測日数で割ったもの
//   - peoplePerDay: 日別の出勤ユーザー数（日付昇順）
//   - totalHoursPerStaff: ユーザー別の合計勤務時間（時間の多い順）
//
// 日付の区切りはUTC。
func metricsFromShifts(shifts []model.Shift) *model.MetricsReport {
	durationByDay := map[string]int64{}
	usersByDay := map[string]map[string]struct{}{}
	durationByUser := map[string]int64{}

	for _, s := range shifts {
		if s.ClockOutAt == nil {
			// 勤務中のシフトは集計しない
			continue
		}
		day := time.UnixMilli(s.ClockInAt).UTC().Format("2006-01-02")

		users, ok := usersByDay[day]
		if !ok {
			users = map[string]struct{}{}
			usersByDay[day] = users
		}
		users[s.UserID] = struct{}{}

		dur := *s.ClockOutAt - s.ClockInAt
		durationByDay[day] += dur
		durationByUser[s.UserID] += dur
	}

	var totalMillis int64
	for _, dur := range durationByDay {
		totalMillis += dur
	}
	observedDays := len(durationByDay)
	avgHoursPerDay := 0.0
	if observedDays > 0 {
		avgHoursPerDay = float64(totalMillis) / float64(observedDays) / millisPerHour
	}

	peoplePerDay := make([]model.DayCount, 0, len(usersByDay))
	for day, users := range usersByDay {
		peoplePerDay = append(peoplePerDay, model.DayCount{Day: day, Count: len(users)})
	}
	sort.Slice(peoplePerDay, func(i, j int) bool {
		return peoplePerDay[i].Day < peoplePerDay[j].Day
	})

	totalHoursPerStaff := make([]model.StaffHours, 0, len(durationByUser))
	for userID, dur := range durationByUser {
		totalHoursPerStaff = append(totalHoursPerStaff, model.StaffHours{
			UserID: userID,
			Hours:  float64(dur) / millisPerHour,
		})
	}
	sort.Slice(totalHoursPerStaff, func(i, j int) bool {
		if totalHoursPerStaff[i].Hours != totalHoursPerStaff[j].Hours {
			return totalHoursPerStaff[i].Hours > totalHoursPerStaff[j].Hours
		}
		return totalHoursPerStaff[i].UserID < totalHoursPerStaff[j].UserID
	})

	return &model.MetricsReport{
		AvgHoursPerDay:     avgHoursPerDay,
		PeoplePerDay:       peoplePerDay,
		TotalHoursPerStaff: totalHoursPerStaff,
	}
}
