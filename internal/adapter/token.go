package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"dashv/internal/domain"
)

// ProvisionStage names the step a provisioning attempt failed at
type ProvisionStage string

const (
	StageValidate ProvisionStage = "validate"
	StageCreate   ProvisionStage = "create"
	StageParse    ProvisionStage = "parse"
)

// ProvisionError is returned when no credential could be obtained
type ProvisionError struct {
	Stage    ProvisionStage
	Attempts []string
	LastErr  string
	Output   string
}

func (e *ProvisionError) Error() string {
	switch e.Stage {
	case StageParse:
		return "Could not parse token from output. Output was: " + e.Output
	case StageCreate:
		return fmt.Sprintf("token creation failed after %d attempts: %s", len(e.Attempts), e.LastErr)
	default:
		return e.LastErr
	}
}

// CommandVariant is one syntax of the token creation command
type CommandVariant struct {
	Name  string
	Flags string
}

// TokenCreateVariants covers the pveum syntaxes of different platform
// releases, most capable first
var TokenCreateVariants = []CommandVariant{
	{Name: "privsep-json", Flags: "-privsep 0 -output-format json"},
	{Name: "privsep", Flags: "-privsep 0"},
	{Name: "bare", Flags: ""},
	{Name: "json", Flags: "-output-format json"},
}

// SecretParser extracts a token secret from command output
type SecretParser struct {
	Name  string
	Parse func(output string) string
}

var (
	uuidPattern     = regexp.MustCompile(`(?i)([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)
	valueKeyPattern = regexp.MustCompile(`(?i)value['"]?\s*[=:]\s*['"]?([a-f0-9\-]+)['"]?`)
	accountPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9._-]+$`)
	tokenNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// SecretParsers are tried in order; the first non-empty result wins
var SecretParsers = []SecretParser{
	{Name: "json-line", Parse: parseJSONLine},
	{Name: "uuid", Parse: func(out string) string { return firstGroup(uuidPattern, out) }},
	{Name: "value-key", Parse: func(out string) string { return firstGroup(valueKeyPattern, out) }},
}

func parseJSONLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			log.Printf("SSH: skipping unparsable JSON line: %v", err)
			continue
		}
		if obj.Value != "" {
			return obj.Value
		}
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// ParseSecret runs the parsers over output and returns the first secret
// found and the name of the parser that found it
func ParseSecret(output string) (secret, parser string) {
	for _, p := range SecretParsers {
		if v := strings.TrimSpace(p.Parse(output)); v != "" {
			return v, p.Name
		}
	}
	return "", ""
}

// SanitizeTokenName maps a requested token name onto [A-Za-z0-9_]
func SanitizeTokenName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DefaultTokenName
	}
	return tokenNameUnsafe.ReplaceAllString(name, "_")
}

// ValidateAccount checks an account is of the form user@realm with
// characters safe to place on a shell command line
func ValidateAccount(account string) error {
	if !accountPattern.MatchString(account) {
		return fmt.Errorf("invalid account %q: expected user@realm", account)
	}
	return nil
}

// Provisioner creates platform API tokens over a remote shell
type Provisioner struct {
	runner CommandRunner
}

// NewProvisioner creates a provisioner using runner for remote commands
func NewProvisioner(runner CommandRunner) *Provisioner {
	return &Provisioner{runner: runner}
}

// Provision replaces the token tokenHint of account on the target host
// and returns the new credential. Creation variants are tried in order
// until one succeeds; its output must yield a secret.
func (p *Provisioner) Provision(ctx context.Context, target SSHTarget, account, tokenHint string) (*domain.Credential, error) {
	if account == "" {
		account = domain.DefaultAccount
	}
	if err := ValidateAccount(account); err != nil {
		return nil, &ProvisionError{Stage: StageValidate, LastErr: err.Error()}
	}
	tokenName := SanitizeTokenName(tokenHint)

	removeCmd := fmt.Sprintf("pveum user token remove %s %s 2>/dev/null || true", account, tokenName)
	log.Printf("SSH: removing existing token %s!%s on %s", account, tokenName, target.Host)
	if res := p.runner.Run(ctx, target, removeCmd); !res.Success {
		log.Printf("SSH: token removal ignored: %s", res.ErrorText())
	}

	var (
		result   CommandResult
		attempts []string
		created  bool
	)
	for _, v := range TokenCreateVariants {
		if err := ctx.Err(); err != nil {
			return nil, &ProvisionError{Stage: StageCreate, Attempts: attempts, LastErr: err.Error()}
		}
		cmd := strings.TrimSpace(fmt.Sprintf("pveum user token add %s %s %s", account, tokenName, v.Flags))
		log.Printf("SSH: creating token (%s): %s", v.Name, cmd)
		attempts = append(attempts, v.Name)

		result = p.runner.Run(ctx, target, cmd)
		if result.Success {
			created = true
			break
		}
		log.Printf("SSH: variant %s failed: %s", v.Name, result.ErrorText())
	}
	if !created {
		return nil, &ProvisionError{
			Stage:    StageCreate,
			Attempts: attempts,
			LastErr:  result.ErrorText(),
			Output:   result.Stdout,
		}
	}

	secret, parser := ParseSecret(result.Stdout)
	if secret == "" {
		return nil, &ProvisionError{
			Stage:    StageParse,
			Attempts: attempts,
			LastErr:  "no secret in command output",
			Output:   result.Stdout,
		}
	}
	log.Printf("SSH: token %s!%s created (parsed by %s)", account, tokenName, parser)

	return &domain.Credential{
		Secret:      secret,
		AccountName: account,
		TokenName:   tokenName,
	}, nil
}

// IsProvisionError reports whether err carries a *ProvisionError
func IsProvisionError(err error) bool {
	var pe *ProvisionError
	return errors.As(err, &pe)
}
