package cache

import (
	"fmt"
	"strconv"
	"time"
)

// TTL bounds.
const (
	// DefaultTTL is one hour.
	DefaultTTL = time.Hour

	// MinTTL is one second; catalog entities change rarely but tests need short TTLs.
	MinTTL = time.Second

	// MaxTTL is seven days.
	MaxTTL = 7 * 24 * time.Hour

	hoursPerDay    = 24
	minutesPerHour = 60
)

// ErrInvalidTTL is returned for a TTL outside [MinTTL, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %s and %s", MinTTL, MaxTTL)

// ValidateTTL checks ttl against the accepted range.
func ValidateTTL(ttl time.Duration) error {
	if ttl < MinTTL || ttl > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return nil
}

// TTLFromSeconds converts a config value to a duration, using DefaultTTL for 0.
func TTLFromSeconds(seconds int) (time.Duration, error) {
	if seconds == 0 {
		return DefaultTTL, nil
	}
	ttl := time.Duration(seconds) * time.Second
	if err := ValidateTTL(ttl); err != nil {
		return 0, err
	}
	return ttl, nil
}

// ParseTTL accepts integer seconds ("3600") or a Go duration ("1h30m").
func ParseTTL(s string) (time.Duration, error) {
	var ttl time.Duration
	if seconds, err := strconv.Atoi(s); err == nil {
		ttl = time.Duration(seconds) * time.Second
	} else {
		d, parseErr := time.ParseDuration(s)
		if parseErr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", parseErr)
		}
		ttl = d
	}
	if err := ValidateTTL(ttl); err != nil {
		return 0, err
	}
	return ttl, nil
}

// FormatDuration renders d compactly: "45s", "30m", "1h30m", "2d3h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < hoursPerDay*time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
