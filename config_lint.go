package goGrant

import (
	"strings"
	"time"
)

// LintWarning is a configuration choice that is valid but worth a second
// look.
type LintWarning struct {
	Code    string
	Message string
}

type LintWarnings []LintWarning

func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports risky but valid settings. It never fails; Validate does that.
func (c Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, msg string) {
		ws = append(ws, LintWarning{Code: code, Message: msg})
	}

	if c.Tokens.AccessTTL > time.Hour {
		add("access_ttl_long", "access tokens live longer than one hour")
	}
	if !c.Tokens.RevokeSupersededAccess && c.Security.ProductionMode {
		add("superseded_access_kept", "refreshed access tokens stay valid until they expire")
	}
	if len(c.Tokens.AllowedScopes) == 0 {
		add("scopes_unbounded", "callers may request any scope")
	}
	if !c.Security.EnableIPThrottle {
		add("ip_throttle_disabled", "failed logins are only counted per identifier")
	}
	if !c.PasswordReset.EnableIdentifierThrottle && !c.PasswordReset.EnableIPThrottle {
		add("reset_throttle_disabled", "reset mails can be requested without limit")
	}
	if c.PasswordReset.TTL > time.Hour {
		add("reset_ttl_long", "reset tickets live longer than one hour")
	}
	if !c.PasswordReset.RevokeTokens {
		add("reset_keeps_tokens", "a password reset does not sign out existing tokens")
	}
	if strings.HasPrefix(c.PasswordReset.URL, "http://") {
		add("reset_url_insecure", "reset links are sent over plain http")
	}
	if c.Password.Memory < 19*1024 {
		add("argon2_memory_low", "argon2 memory is below 19 MiB")
	}
	if c.Security.ProductionMode && !c.Audit.Enabled {
		add("audit_disabled", "production mode without audit events")
	}
	return ws
}
