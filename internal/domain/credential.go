package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultAccount is the platform account tokens are created under
	DefaultAccount = "root@pam"
	// DefaultTokenName is used when no token name is requested
	DefaultTokenName = "dashv_auto"
	// DefaultAPIPort is the Proxmox VE API port
	DefaultAPIPort = 8006
)

// Credential is an API token created by the provisioner. It is handed to
// the connection layer immediately and not retained.
type Credential struct {
	Secret      string `json:"-"`
	AccountName string `json:"account"`
	TokenName   string `json:"token_name"`
}

// TokenID returns the "account!token" identifier of the credential
func (c Credential) TokenID() string {
	return c.AccountName + "!" + c.TokenName
}

// APIToken renders the composite "account!token=secret" header value
func (c Credential) APIToken() string {
	return fmt.Sprintf("%s!%s=%s", c.AccountName, c.TokenName, c.Secret)
}

// BuildAPIToken normalizes the token forms operators paste into the
// connection form:
//   - a bare secret, combined with user (which may already carry "!tokenid")
//   - "user@realm!tokenid=secret", used as is
//   - "user@realm!tokenid:secret", with the last ':' turned into '='
func BuildAPIToken(user, token, tokenID string) string {
	token = strings.TrimSpace(token)
	if !strings.ContainsAny(token, "@!") {
		if strings.Contains(user, "!") {
			return user + "=" + token
		}
		if tokenID == "" {
			tokenID = DefaultTokenName
		}
		return fmt.Sprintf("%s!%s=%s", user, tokenID, token)
	}
	if idx := strings.LastIndex(token, ":"); idx >= 0 && idx < len(token)-1 {
		return token[:idx] + "=" + token[idx+1:]
	}
	return token
}

// Connection is a saved platform API connection
type Connection struct {
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	User      string    `json:"user"`
	Token     string    `json:"-"`
	TokenID   string    `json:"token_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SplitHostPort splits "host" or "host:port", falling back to def for a
// missing or malformed port
func SplitHostPort(hostport string, def int) (string, int) {
	host := strings.TrimSpace(hostport)
	idx := strings.LastIndex(host, ":")
	if idx < 0 {
		return host, def
	}
	port := 0
	for _, r := range host[idx+1:] {
		if r < '0' || r > '9' {
			return host[:idx], def
		}
		port = port*10 + int(r-'0')
		if port > 65535 {
			return host[:idx], def
		}
	}
	if port == 0 {
		return host[:idx], def
	}
	return host[:idx], port
}
