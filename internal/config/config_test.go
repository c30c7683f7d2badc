package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "dialer"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		AMI:   AMIConfig{Host: "192.168.1.100", Port: 5038, Username: "admin", Secret: "amp111"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.DB.SSLMode = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_AppliesDialerDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Dialer.PacingRatio != 2 {
		t.Fatalf("expected pacing ratio default 2, got %d", c.Dialer.PacingRatio)
	}
	if c.Dialer.IterationSleep != 5*time.Second {
		t.Fatalf("expected iteration sleep default 5s, got %v", c.Dialer.IterationSleep)
	}
	if c.Dialer.PollInterval != 10*time.Second {
		t.Fatalf("expected poll interval default 10s, got %v", c.Dialer.PollInterval)
	}
	if c.Dialer.MaxIterations != 1000 {
		t.Fatalf("expected iteration ceiling default 1000, got %d", c.Dialer.MaxIterations)
	}
	if c.AMI.ReadTimeout != 10*time.Second {
		t.Fatalf("expected AMI read timeout default 10s, got %v", c.AMI.ReadTimeout)
	}
	if c.Dialer.CountryCode != "62" {
		t.Fatalf("expected country code default 62, got %q", c.Dialer.CountryCode)
	}
}

func TestValidate_RequiresAMICredentials(t *testing.T) {
	c := validConfig()
	c.AMI.Username = ""
	c.AMI.Secret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing AMI credentials")
	}
}

func TestAddrHelpers(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := c.AMIAddr(); got != "192.168.1.100:5038" {
		t.Fatalf("unexpected AMI addr: %q", got)
	}
	if got := c.RedisAddr(); got != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %q", got)
	}
}
