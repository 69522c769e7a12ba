// Package grpc holds client helpers shared by kingdom commands and tests.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthCallTimeout = time.Second
	minHealthBackoff  = 100 * time.Millisecond
	maxHealthBackoff  = time.Second
)

// WaitForHealth polls the health service until service reports SERVING or
// ctx ends. logf, when set, receives one line per failed poll.
func WaitForHealth(ctx context.Context, conn gogrpc.ClientConnInterface, service string, logf func(string, ...any)) error {
	if conn == nil {
		return errors.New("gRPC connection is required")
	}
	client := grpc_health_v1.NewHealthClient(conn)

	for backoff := minHealthBackoff; ; backoff = min(backoff*2, maxHealthBackoff) {
		state, err := checkOnce(ctx, client, service)
		if err == nil && state == grpc_health_v1.HealthCheckResponse_SERVING {
			return nil
		}
		if logf != nil {
			if err != nil {
				logf("health %q: %v", service, err)
			} else {
				logf("health %q: %s", service, state)
			}
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for %q health: %w", service, ctx.Err())
		case <-timer.C:
		}
	}
}

// Probe dials addr without TLS and waits for service to report SERVING.
// The kingdom command uses it as a container health check.
func Probe(ctx context.Context, addr, service string) error {
	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	return WaitForHealth(ctx, conn, service, nil)
}

func checkOnce(ctx context.Context, client grpc_health_v1.HealthClient, service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	callCtx, cancel := context.WithTimeout(ctx, healthCallTimeout)
	defer cancel()
	resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
