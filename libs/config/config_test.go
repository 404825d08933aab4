package config

import (
	"testing"
	"time"
)

func TestStringTrims(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "  value ")
	if got := String("CFG_TEST_STR", "x"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("CFG_TEST_STR", "   ")
	if got := String("CFG_TEST_STR", "x"); got != "x" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
	if _, err := RequiredString("CFG_TEST_STR"); err == nil {
		t.Fatal("blank required value must fail")
	}
}

func TestPort(t *testing.T) {
	t.Setenv("CFG_TEST_PORT", "70000")
	if _, err := Port("CFG_TEST_PORT", "8080"); err == nil {
		t.Fatal("expected out-of-range port to fail")
	}
	t.Setenv("CFG_TEST_PORT", "")
	if p, err := Port("CFG_TEST_PORT", "8080"); err != nil || p != "8080" {
		t.Fatalf("expected fallback port, got %q %v", p, err)
	}
}

func TestIntDurationBool(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "12")
	if n, err := Int("CFG_TEST_INT", 1); err != nil || n != 12 {
		t.Fatalf("unexpected int %d %v", n, err)
	}
	t.Setenv("CFG_TEST_INT", "twelve")
	if _, err := Int("CFG_TEST_INT", 1); err == nil {
		t.Fatal("expected parse error")
	}

	t.Setenv("CFG_TEST_DUR", "750ms")
	if d, err := Duration("CFG_TEST_DUR", time.Second); err != nil || d != 750*time.Millisecond {
		t.Fatalf("unexpected duration %v %v", d, err)
	}
	t.Setenv("CFG_TEST_DUR", "-1s")
	if _, err := Duration("CFG_TEST_DUR", time.Second); err == nil {
		t.Fatal("negative duration must fail")
	}

	t.Setenv("CFG_TEST_BOOL", "Yes")
	if !Bool("CFG_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	t.Setenv("CFG_TEST_BOOL", "maybe")
	if Bool("CFG_TEST_BOOL", false) {
		t.Fatal("unrecognised value must return fallback")
	}
}
