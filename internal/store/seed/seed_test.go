package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botbridge/routecore/internal/core/domain"
	"github.com/botbridge/routecore/internal/store/sqlite"
)

const sampleSeed = `
tags:
  - id: code-gen
    category: coding
    priority: 5
    required_skills: [code]
strategies:
  - id: default
    cost_weight: 0.5
    performance_weight: 0.2
    capability_weight: 0.3
chains:
  - id: primary
    models:
      - vendor: anthropic
        model: claude-large
        protocol: anthropic
      - vendor: openai
        model: gpt-large
        protocol: openai
    trigger_status_codes: [429, 503]
    trigger_timeout: 45s
    max_retries: 2
    retry_delay: 250ms
models:
  - vendor: anthropic
    model: claude-large
    protocol: anthropic
    skills: [code, tool_use]
    input_cost_per_mtok: 3
    output_cost_per_mtok: 15
    avg_latency: 2s
    capability_score: 0.92
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndApply(t *testing.T) {
	f, err := Load(writeSeed(t, sampleSeed))
	require.NoError(t, err)
	assert.Len(t, f.Tags, 1)
	assert.Len(t, f.Chains, 1)

	repo, err := sqlite.NewSQLiteStorage("file:"+t.TempDir()+"/seed.db", zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	ctx := context.Background()
	require.NoError(t, Apply(ctx, repo, f))

	chain, err := repo.Chains().Get(ctx, "primary")
	require.NoError(t, err)
	require.Len(t, chain.Steps, 2)
	assert.Equal(t, "anthropic", chain.Steps[0].Vendor)
	assert.Equal(t, []int{429, 503}, chain.TriggerStatusCodes)
	assert.Equal(t, 45*time.Second, chain.TriggerTimeout)
	assert.Equal(t, 250*time.Millisecond, chain.RetryDelay)

	catalog, err := repo.Models().ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)

	// Re-applying is idempotent.
	require.NoError(t, Apply(ctx, repo, f))
	catalog, err = repo.Models().ListEnabled(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}

func TestLoadRejectsUnknownProtocol(t *testing.T) {
	bad := `
models:
  - vendor: acme
    model: m1
    protocol: carrier-pigeon
`
	_, err := Load(writeSeed(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestLoadRejectsChainWithoutSteps(t *testing.T) {
	bad := `
chains:
  - id: empty
    models: []
`
	_, err := Load(writeSeed(t, bad))
	require.Error(t, err)
}

func TestValidateRejectsBadTagProtocol(t *testing.T) {
	err := Validate(&File{
		Tags: []domain.CapabilityTag{{ID: "t", RequiredProtocol: "smoke-signal"}},
	})
	require.Error(t, err)
}
