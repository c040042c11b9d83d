package config

import "time"

type OAuth struct {
	ServiceID    string        `env:"IRONIO_OAUTH_SERVICE_ID" envDefault:"IronIoOAuthService"`
	StateTTL     time.Duration `env:"IRONIO_OAUTH_STATE_TTL" envDefault:"15m"`
	RequireState bool          `env:"IRONIO_OAUTH_REQUIRE_STATE" envDefault:"true"`
	HTTPTimeout  time.Duration `env:"IRONIO_OAUTH_HTTP_TIMEOUT" envDefault:"30s"`
}

var _ OAuthConfig = OAuth{}

// GetServiceID is the key tokens are stored under.
func (o OAuth) GetServiceID() string {
	return o.ServiceID
}

// GetStateTTL bounds how long a signed state stays valid; the provider has to
// call the webhook back within this window.
func (o OAuth) GetStateTTL() time.Duration {
	return o.StateTTL
}

// GetRequireState rejects codes that arrive without a state. Set
// IRONIO_OAUTH_REQUIRE_STATE=false only for providers that do not echo state.
func (o OAuth) GetRequireState() bool {
	return o.RequireState
}

func (o OAuth) GetHTTPTimeout() time.Duration {
	return o.HTTPTimeout
}
