package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Calendar approximations used when converting HumanDuration.
const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

// HumanDuration is the object form of a duration used in app-config, e.g.
// {minutes: 10} or {hours: 1, minutes: 30}.
type HumanDuration struct {
	Years        int `yaml:"years" json:"years,omitempty"`
	Months       int `yaml:"months" json:"months,omitempty"`
	Weeks        int `yaml:"weeks" json:"weeks,omitempty"`
	Days         int `yaml:"days" json:"days,omitempty"`
	Hours        int `yaml:"hours" json:"hours,omitempty"`
	Minutes      int `yaml:"minutes" json:"minutes,omitempty"`
	Seconds      int `yaml:"seconds" json:"seconds,omitempty"`
	Milliseconds int `yaml:"milliseconds" json:"milliseconds,omitempty"`
}

// Duration converts h, treating a month as 30 days and a year as 365.
func (h HumanDuration) Duration() time.Duration {
	return time.Duration(h.Years)*year +
		time.Duration(h.Months)*month +
		time.Duration(h.Weeks)*week +
		time.Duration(h.Days)*day +
		time.Duration(h.Hours)*time.Hour +
		time.Duration(h.Minutes)*time.Minute +
		time.Duration(h.Seconds)*time.Second +
		time.Duration(h.Milliseconds)*time.Millisecond
}

var humanDurationKeys = map[string]time.Duration{ //nolint:gochecknoglobals // lookup table
	"years":        year,
	"months":       month,
	"weeks":        week,
	"days":         day,
	"hours":        time.Hour,
	"minutes":      time.Minute,
	"seconds":      time.Second,
	"milliseconds": time.Millisecond,
}

var isoDuration = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseDuration reads a duration from a config value. Accepted forms are a
// HumanDuration object, an ISO-8601 string ("PT10M") and a Go duration string
// ("10m").
func ParseDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		return parseDurationString(val)
	case map[string]any:
		return parseHumanDuration(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, x := range val {
			m[fmt.Sprint(k)] = x
		}
		return parseHumanDuration(m)
	case HumanDuration:
		return val.Duration(), nil
	case time.Duration:
		return val, nil
	case nil:
		return 0, fmt.Errorf("duration is missing")
	}
	return 0, fmt.Errorf("unsupported duration value of type %T", v)
}

func parseHumanDuration(m map[string]any) (time.Duration, error) {
	if len(m) == 0 {
		return 0, fmt.Errorf("duration object is empty")
	}
	if _, ok := m["cron"]; ok {
		return 0, fmt.Errorf("cron schedules are not supported")
	}

	var total time.Duration
	for key, raw := range m {
		unit, ok := humanDurationKeys[key]
		if !ok {
			return 0, fmt.Errorf("unknown duration key %q", key)
		}
		n, err := toInt(raw)
		if err != nil {
			return 0, fmt.Errorf("duration %s: %w", key, err)
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}

func parseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	if strings.HasPrefix(s, "P") {
		return parseISODuration(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

func parseISODuration(s string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", s)
	}

	units := []time.Duration{year, month, week, day, time.Hour, time.Minute}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		total += time.Duration(n) * unit
	}
	if m[7] != "" {
		secs, err := strconv.ParseFloat(m[7], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, err)
		}
		total += time.Duration(secs * float64(time.Second))
	}
	return total, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("must be a whole number, got %v", n)
		}
		return int(n), nil
	case uint64:
		return int(n), nil
	}
	return 0, fmt.Errorf("must be a number, got %T", v)
}
