package onboard_test

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for onboarding end-to-end tests.
 * This includes container setup and issuer token minting.
 */

const (
	testImageName = "gatekeeper-test:latest"

	issuerName   = "gatekeeper-e2e"
	issuerSecret = "e2e-issuer-secret-0123456789abcdef"
	invitePepper = "e2e-invite-pepper-0123456789"
	testPassword = "correct horse battery"
)

// imageBuilt is false when Docker is unavailable; every test then skips.
var imageBuilt bool

// TestMain builds the Docker image once before all tests and cleans it up
// after all tests complete.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	fmt.Fprintf(os.Stdout, "Building gatekeeper Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stdout, " skipped (%v)\n", err)
	} else {
		imageBuilt = true
		fmt.Fprintf(os.Stdout, " done\n")
	}

	exitCode := m.Run()

	if imageBuilt {
		fmt.Fprintf(os.Stdout, "Cleaning up gatekeeper Docker image...")
		cleanupDockerImage()
		fmt.Fprintf(os.Stdout, " done\n")
	}

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gatekeeper/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupGatekeeper starts the service in a container and returns an SDK
// client pointed at it. extraEnv overrides the defaults below.
func setupGatekeeper(t *testing.T, extraEnv map[string]string) *onboardsdk.SDKClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	if !imageBuilt {
		t.Skip("gatekeeper image not available")
	}
	ctx := context.Background()

	env := map[string]string{
		"GATEKEEPER_INVITE_PEPPER": invitePepper,
		"GATEKEEPER_ISSUER_SECRET": issuerSecret,
		"GATEKEEPER_ISSUER":        issuerName,
		"ENV":                      "test",
		"LOG_LEVEL":                "info",
		"LOG_FORMAT":               "json",
		// Tests make many rapid requests from one address
		"GATEKEEPER_RATELIMIT_REDEEM_REQUESTS": "1000",
		"GATEKEEPER_RATELIMIT_REDEEM_BURST":    "1000",
	}
	maps.Copy(env, extraEnv)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.PortEndpoint(ctx, "8080/tcp", "http")
	require.NoError(t, err)

	return onboardsdk.NewSDKClient(endpoint)
}

// issuerSession returns a session holding a freshly minted issuer token.
func issuerSession(t *testing.T, client *onboardsdk.SDKClient, scopes ...string) *onboardsdk.Session {
	t.Helper()
	if len(scopes) == 0 {
		scopes = []string{jwtx.ScopeInvitesWrite, jwtx.ScopeInvitesRead}
	}

	signer, err := jwtx.NewHS256Signer([]byte(issuerSecret))
	require.NoError(t, err)
	token, err := signer.Sign(jwtx.NewIssuerClaims("e2e-operator", issuerName, scopes, time.Hour, time.Now()))
	require.NoError(t, err)

	return client.WithToken(token)
}
