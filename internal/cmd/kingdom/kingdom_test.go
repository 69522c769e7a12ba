package kingdom

import (
	"bytes"
	"flag"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("THRONE_OF_DUST_JWT_SECRET", testSecret)
	fs := flag.NewFlagSet("kingdom", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":8082" {
		t.Fatalf("addrs = %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.DBPath != "data/kingdom.db" || cfg.AuditDir != "data/audit" {
		t.Fatalf("paths = %q %q", cfg.DBPath, cfg.AuditDir)
	}
	if cfg.JWTTTL != 24*time.Hour || cfg.MaxConns != 512 {
		t.Fatalf("ttl = %v max conns = %d", cfg.JWTTTL, cfg.MaxConns)
	}
	if cfg.JWTSecret != testSecret {
		t.Fatalf("secret not read from env")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("THRONE_OF_DUST_JWT_SECRET", testSecret)
	t.Setenv("THRONE_OF_DUST_DB_PATH", "env.db")
	t.Setenv("THRONE_OF_DUST_JWT_TTL", "2h")
	fs := flag.NewFlagSet("kingdom", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "127.0.0.1:9000", "-max-conns", "4"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "env.db" || cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("env overrides = %q %v", cfg.DBPath, cfg.JWTTTL)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.MaxConns != 4 {
		t.Fatalf("flag overrides = %q %d", cfg.HTTPAddr, cfg.MaxConns)
	}
}

func TestParseConfigRequiresSecret(t *testing.T) {
	t.Setenv("THRONE_OF_DUST_JWT_SECRET", "")
	fs := flag.NewFlagSet("kingdom", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestParseConfigBadArgs(t *testing.T) {
	t.Setenv("THRONE_OF_DUST_JWT_SECRET", testSecret)
	fs := flag.NewFlagSet("kingdom", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if _, err := ParseConfig(fs, []string{"-invalid"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestParseConfigProbeSkipsSecret(t *testing.T) {
	t.Setenv("THRONE_OF_DUST_JWT_SECRET", "")
	fs := flag.NewFlagSet("kingdom", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-probe", "-grpc-addr", ":9999"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Probe || cfg.GRPCAddr != ":9999" {
		t.Fatalf("config = %+v", cfg)
	}
}
