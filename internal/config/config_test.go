package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ROUND_SIZE", "LABEL_MS", "DB_PATH", "NODE_ENV", "JWT_EXPIRES_DAYS"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Addr() != ":5175" {
		t.Fatalf("Addr = %q", c.Addr())
	}
	if c.RoundSize != 5 || c.LabelDuration != 2*time.Second {
		t.Fatalf("round/label = %d/%v", c.RoundSize, c.LabelDuration)
	}
	if c.DBPath != "" || c.Production() {
		t.Fatalf("unexpected %+v", c)
	}
	if c.JWTExpiresDays != 14 {
		t.Fatalf("JWTExpiresDays = %d", c.JWTExpiresDays)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ROUND_SIZE", "3")
	t.Setenv("LABEL_MS", "500")
	t.Setenv("NODE_ENV", "production")
	c := FromEnv()
	if c.Port != "9000" || c.RoundSize != 3 || c.LabelDuration != 500*time.Millisecond || !c.Production() {
		t.Fatalf("overrides not applied: %+v", c)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ROUND_SIZE", "lots")
	t.Setenv("LABEL_MS", "-5")
	c := FromEnv()
	if c.RoundSize != 5 || c.LabelDuration != 2*time.Second {
		t.Fatalf("fallback failed: %+v", c)
	}
}
