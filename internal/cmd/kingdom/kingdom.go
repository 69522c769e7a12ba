// Package kingdom parses kingdom service flags and launches the service.
package kingdom

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/throne-of-dust/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/throne-of-dust/internal/platform/grpc"
	"github.com/louisbranch/throne-of-dust/internal/platform/timeouts"
	kingdomgrpc "github.com/louisbranch/throne-of-dust/internal/services/kingdom/api/grpc/kingdom"
	server "github.com/louisbranch/throne-of-dust/internal/services/kingdom/app"
)

// Config holds kingdom command configuration.
type Config struct {
	HTTPAddr   string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr   string        `env:"GRPC_ADDR" envDefault:":8082"`
	DBPath     string        `env:"DB_PATH" envDefault:"data/kingdom.db"`
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	TuningPath string        `env:"TUNING_PATH"`
	AuditDir   string        `env:"AUDIT_DIR" envDefault:"data/audit"`
	MaxConns   int           `env:"MAX_CONNS" envDefault:"512"`
	// Probe checks a running server's gRPC health instead of serving.
	Probe bool `env:"-"`
}

// ParseConfig parses environment and flags into Config. The JWT secret is
// only read from the environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.DurationVar(&cfg.JWTTTL, "jwt-ttl", cfg.JWTTTL, "Session token lifetime")
	fs.StringVar(&cfg.TuningPath, "tuning", cfg.TuningPath, "Balance tuning YAML file (embedded defaults when empty)")
	fs.StringVar(&cfg.AuditDir, "audit-dir", cfg.AuditDir, "Raid audit directory (disabled when empty)")
	fs.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "Concurrent connection cap per listener")
	fs.BoolVar(&cfg.Probe, "probe", false, "Exit 0 when the server at -grpc-addr reports SERVING")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if !cfg.Probe && strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, errors.New("THRONE_OF_DUST_JWT_SECRET is required")
	}
	return cfg, nil
}

// Run starts the kingdom HTTP and gRPC services.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Probe {
		return probe(ctx, cfg.GRPCAddr)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceKingdom, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			HTTPAddr:   cfg.HTTPAddr,
			GRPCAddr:   cfg.GRPCAddr,
			DBPath:     cfg.DBPath,
			JWTSecret:  cfg.JWTSecret,
			JWTTTL:     cfg.JWTTTL,
			TuningPath: cfg.TuningPath,
			AuditDir:   cfg.AuditDir,
			MaxConns:   cfg.MaxConns,
		})
	})
}

func probe(ctx context.Context, addr string) error {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.GRPCHealth)
	defer cancel()
	return platformgrpc.Probe(ctx, addr, kingdomgrpc.ServiceName)
}
