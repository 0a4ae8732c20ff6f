package passphrase

import (
	"os"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("WITY_TEST_PASSPHRASE", "correct horse")
	src := NewSource("WITY_TEST_PASSPHRASE", "wallet")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "correct horse" {
		t.Fatalf("unexpected passphrase %q", got)
	}
	os.Setenv("WITY_TEST_PASSPHRASE", "changed")
	again, _ := src.Get()
	if again != "correct horse" {
		t.Fatalf("expected cached value, got %q", again)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("WITY_TEST_PASSPHRASE", "   ")
	if _, err := NewSource("WITY_TEST_PASSPHRASE", "wallet").Get(); err == nil {
		t.Fatalf("expected blank passphrase to be rejected")
	}
}
