//go:build integration
// +build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// composeArgs prefixes a compose subcommand with the file from
// E2E_COMPOSE_FILE when one is set.
func composeArgs(sub ...string) []string {
	args := []string{"compose"}
	if f := getenv("E2E_COMPOSE_FILE", ""); f != "" {
		args = append(args, "-f", f)
	}
	return append(args, sub...)
}

// restartService restarts one compose service and waits until its readiness
// endpoint answers again, so persisted state is read back from storage.
func restartService(t *testing.T, ctx context.Context, service, readyURL string) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", composeArgs("restart", service)...).CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", service, err, string(out))
	}
	waitReady(t, ctx, readyURL)
}
