package adapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers commands from a list of results keyed by prefix
type scriptedRunner struct {
	mu       sync.Mutex
	results  func(cmd string) CommandResult
	commands []string
}

func (s *scriptedRunner) Run(ctx context.Context, target SSHTarget, command string) CommandResult {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()
	return s.results(command)
}

var testTarget = SSHTarget{Host: "pve.lan", Username: "root", Password: "secret"}

const tokenJSON = `{"full-tokenid":"root@pam!dashv_auto","info":{"privsep":"0"},"value":"5f0d6e6a-1234-4abc-9def-00112233aabb"}`

func TestProvision_SecondVariantSucceeds(t *testing.T) {
	runner := &scriptedRunner{results: func(cmd string) CommandResult {
		switch {
		case strings.HasPrefix(cmd, "pveum user token remove"):
			return CommandResult{Success: true}
		case strings.HasSuffix(cmd, "-privsep 0 -output-format json"):
			return CommandResult{ExitCode: 255, Stderr: "Unknown option: output-format"}
		case strings.HasSuffix(cmd, "-privsep 0"):
			return CommandResult{Success: true, Stdout: "some banner\n" + tokenJSON + "\n"}
		}
		t.Fatalf("unexpected command %q", cmd)
		return CommandResult{}
	}}

	cred, err := NewProvisioner(runner).Provision(context.Background(), testTarget, "root@pam", "dashv_auto")
	require.NoError(t, err)

	assert.Equal(t, "5f0d6e6a-1234-4abc-9def-00112233aabb", cred.Secret)
	assert.Equal(t, "root@pam!dashv_auto=5f0d6e6a-1234-4abc-9def-00112233aabb", cred.APIToken())
	assert.Equal(t, []string{
		"pveum user token remove root@pam dashv_auto 2>/dev/null || true",
		"pveum user token add root@pam dashv_auto -privsep 0 -output-format json",
		"pveum user token add root@pam dashv_auto -privsep 0",
	}, runner.commands)
}

func TestProvision_AllVariantsFail(t *testing.T) {
	runner := &scriptedRunner{results: func(cmd string) CommandResult {
		if strings.HasPrefix(cmd, "pveum user token remove") {
			return CommandResult{Success: true}
		}
		return CommandResult{ExitCode: 2, Stderr: "user 'root@pam' does not exist"}
	}}

	cred, err := NewProvisioner(runner).Provision(context.Background(), testTarget, "root@pam", "dashv_auto")
	require.Error(t, err)
	assert.Nil(t, cred)

	var pe *ProvisionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageCreate, pe.Stage)
	assert.Equal(t, []string{"privsep-json", "privsep", "bare", "json"}, pe.Attempts)
	assert.Equal(t, "user 'root@pam' does not exist", pe.LastErr)
	assert.Len(t, runner.commands, 5, "one delete plus four create attempts, nothing else")
	assert.True(t, IsProvisionError(err))
}

func TestProvision_UnparsableOutput(t *testing.T) {
	runner := &scriptedRunner{results: func(cmd string) CommandResult {
		return CommandResult{Success: true, Stdout: "token created\n"}
	}}

	_, err := NewProvisioner(runner).Provision(context.Background(), testTarget, "", "")
	require.Error(t, err)

	var pe *ProvisionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageParse, pe.Stage)
	assert.Contains(t, err.Error(), "Could not parse token from output. Output was: token created")
	assert.Equal(t, "pveum user token remove root@pam dashv_auto 2>/dev/null || true", runner.commands[0])
}

func TestProvision_RejectsUnsafeAccount(t *testing.T) {
	runner := &scriptedRunner{results: func(string) CommandResult { return CommandResult{Success: true} }}

	_, err := NewProvisioner(runner).Provision(context.Background(), testTarget, "root@pam; rm -rf /", "x")
	require.Error(t, err)
	assert.Empty(t, runner.commands)
}

func TestProvision_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{results: func(cmd string) CommandResult {
		cancel()
		return CommandResult{ExitCode: -1, Err: context.Canceled}
	}}

	_, err := NewProvisioner(runner).Provision(ctx, testTarget, "root@pam", "t")
	require.Error(t, err)
	assert.Len(t, runner.commands, 1)
}

func TestParseSecret(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantSecret string
		wantParser string
	}{
		{
			name:       "json line",
			output:     "┌──\n" + tokenJSON + "\n",
			wantSecret: "5f0d6e6a-1234-4abc-9def-00112233aabb",
			wantParser: "json-line",
		},
		{
			name: "table output",
			output: `┌──────────────┬──────────────────────────────────────┐
│ key          │ value                                │
╞══════════════╪══════════════════════════════════════╡
│ full-tokenid │ root@pam!dashv_auto                  │
│ value        │ AABBCCDD-1111-2222-3333-444455556666 │
└──────────────┴──────────────────────────────────────┘`,
			wantSecret: "AABBCCDD-1111-2222-3333-444455556666",
			wantParser: "uuid",
		},
		{
			name:       "value key",
			output:     "value: 'deadbeef-cafe'",
			wantSecret: "deadbeef-cafe",
			wantParser: "value-key",
		},
		{
			name:       "broken json falls through",
			output:     "{\"value\": \n value=abc123",
			wantSecret: "abc123",
			wantParser: "value-key",
		},
		{
			name:   "nothing",
			output: "permission denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, parser := ParseSecret(tt.output)
			assert.Equal(t, tt.wantSecret, secret)
			assert.Equal(t, tt.wantParser, parser)
		})
	}
}

func TestSanitizeTokenName(t *testing.T) {
	assert.Equal(t, "dashv_auto", SanitizeTokenName(""))
	assert.Equal(t, "dashv_auto", SanitizeTokenName("  "))
	assert.Equal(t, "dash_v_auto_1", SanitizeTokenName("dash-v.auto 1"))
	assert.Equal(t, "ok_Token9", SanitizeTokenName("ok_Token9"))
	assert.Equal(t, "_x_", SanitizeTokenName("$x;"))
}

func TestValidateAccount(t *testing.T) {
	assert.NoError(t, ValidateAccount("root@pam"))
	assert.NoError(t, ValidateAccount("dash.v-bot@pve"))
	assert.Error(t, ValidateAccount("root"))
	assert.Error(t, ValidateAccount("root@pam$(id)"))
	assert.Error(t, ValidateAccount("a b@pam"))
}
