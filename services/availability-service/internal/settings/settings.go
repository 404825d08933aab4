// Package settings loads the domain settings file. Deployment wiring (ports,
// DSNs, brokers) stays in environment variables; this file holds what editors
// of the availability model see: weekday labels, display locale, limits.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	// FailOpen lets requests through when Redis is unreachable.
	FailOpen bool `yaml:"fail_open"`
}

type Outbox struct {
	PollEvery time.Duration `yaml:"poll_every"`
	BatchSize int           `yaml:"batch_size"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Settings struct {
	Locale        string          `yaml:"locale"`
	WeekdayLabels schedule.Labels `yaml:"weekday_labels"`
	// CalendarMaxDays bounds the window of a day-off calendar request.
	CalendarMaxDays int       `yaml:"calendar_max_days"`
	MaxBodyBytes    int64     `yaml:"max_body_bytes"`
	RateLimit       RateLimit `yaml:"rate_limit"`
	Outbox          Outbox    `yaml:"outbox"`
	CORS            CORS      `yaml:"cors"`
}

func Default() Settings {
	s := Settings{}
	s.Normalize()
	return s
}

// Normalize fills zero values with defaults and drops labels for unknown
// weekday keys.
func (s *Settings) Normalize() {
	s.Locale = strings.TrimSpace(s.Locale)
	if s.Locale == "" {
		s.Locale = "en"
	}
	labels := schedule.Labels{}
	for k, v := range s.WeekdayLabels {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if _, ok := schedule.WeekdayID(k); ok && v != "" {
			labels[k] = v
		}
	}
	s.WeekdayLabels = labels
	if s.CalendarMaxDays <= 0 {
		s.CalendarMaxDays = 3 * 366
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = 1 << 20
	}
	if s.RateLimit.Requests <= 0 {
		s.RateLimit.Requests = 120
	}
	if s.RateLimit.Window <= 0 {
		s.RateLimit.Window = time.Minute
	}
	if s.Outbox.PollEvery <= 0 {
		s.Outbox.PollEvery = 2 * time.Second
	}
	if s.Outbox.BatchSize <= 0 {
		s.Outbox.BatchSize = 50
	}
	if s.CORS.AllowedOrigins == nil {
		s.CORS.AllowedOrigins = []string{}
	}
}

// Tag is the display locale matched against the supported languages.
func (s Settings) Tag() language.Tag {
	return daterange.ParseLocale(s.Locale)
}

// Load reads path. An empty path yields the defaults; a named file that does
// not exist is an error so a typo in SETTINGS_FILE is not silently ignored.
func Load(path string) (Settings, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	s.Normalize()
	return s, nil
}
