package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Locale != "en" || s.RateLimit.Requests != 120 || s.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s.Outbox.PollEvery != 2*time.Second || s.Outbox.BatchSize != 50 {
		t.Fatalf("unexpected outbox defaults %+v", s.Outbox)
	}
	if len(s.WeekdayLabels) != 0 {
		t.Fatalf("expected no label overrides, got %v", s.WeekdayLabels)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := `
locale: de-CH
weekday_labels:
  MON: Montag
  tue: " Dienstag "
  xyz: ignored
rate_limit:
  requests: 10
  window: 30s
outbox:
  poll_every: 500ms
cors:
  allowed_origins: ["https://admin.example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.WeekdayLabels["mon"] != "Montag" || s.WeekdayLabels["tue"] != "Dienstag" || len(s.WeekdayLabels) != 2 {
		t.Fatalf("unexpected labels %v", s.WeekdayLabels)
	}
	if s.RateLimit.Requests != 10 || s.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected rate limit %+v", s.RateLimit)
	}
	if s.Outbox.PollEvery != 500*time.Millisecond || s.Outbox.BatchSize != 50 {
		t.Fatalf("unexpected outbox %+v", s.Outbox)
	}
	if base, _ := s.Tag().Base(); base != language.MustParseBase("de") {
		t.Fatalf("unexpected locale tag %v", s.Tag())
	}
	if len(s.CORS.AllowedOrigins) != 1 {
		t.Fatalf("unexpected cors %+v", s.CORS)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("lokale: de\n")); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing settings file")
	}
}

func TestParseEmptyDocument(t *testing.T) {
	s, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Locale != "en" {
		t.Fatalf("expected defaults, got %+v", s)
	}
}
