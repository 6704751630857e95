package domain

import "time"

// RangePreset 时间范围预设
type RangePreset string

const (
	RangeToday  RangePreset = "today"  // 今日
	RangeWeek   RangePreset = "7d"     // 最近 7 天
	RangeCustom RangePreset = "custom" // 自定义区间
)

// TimeRange 查询时间范围（闭区间，按自然日对齐）
type TimeRange struct {
	Preset RangePreset
	Start  time.Time
	End    time.Time
}

// NewTimeRange 根据预设展开时间范围
// custom 必须给出 start/end 且 start 不晚于 end，其余预设忽略入参边界。
func NewTimeRange(preset RangePreset, start, end, now time.Time) (TimeRange, error) {
	switch preset {
	case "", RangeToday:
		day := startOfDay(now)
		return TimeRange{Preset: RangeToday, Start: day, End: day.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
	case RangeWeek:
		day := startOfDay(now)
		return TimeRange{Preset: RangeWeek, Start: day.AddDate(0, 0, -6), End: day.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
	case RangeCustom:
		if start.IsZero() || end.IsZero() || end.Before(start) {
			return TimeRange{}, ErrInvalidTimeRange
		}
		return TimeRange{Preset: RangeCustom, Start: startOfDay(start), End: startOfDay(end).AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
	default:
		return TimeRange{}, ErrInvalidTimeRange
	}
}

// Days 范围覆盖的自然日数
func (r TimeRange) Days() int {
	return int(startOfDay(r.End).Sub(startOfDay(r.Start))/(24*time.Hour)) + 1
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
