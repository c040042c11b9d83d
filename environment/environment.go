// Package environment resolves worker configuration against a two-tier store:
// an environment-named section first, then the global keys.
package environment

import (
	"fmt"
	"sort"
	"strings"

	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
)

// Key names a configuration value the worker reads.
type Key string

const (
	KeyProjectID          Key = "project_id"
	KeyWorkerName         Key = "worker_name"
	KeyToken              Key = "token"
	KeyUsername           Key = "username"
	KeyPassword           Key = "password"
	KeyAPIURI             Key = "api_uri"
	KeyOAuthAuthEndpoint  Key = "oauth_auth_endpoint"
	KeyOAuthTokenEndpoint Key = "oauth_token_endpoint"
	// KeyStateSecret keys the anti-forgery state. It must never appear in a
	// URL, so it cannot be the webhook token.
	KeyStateSecret Key = "state_secret"

	// Optional keys.
	KeyWebhookBase Key = "webhook_base"
	KeyScope       Key = "scope"
)

// RequiredKeys is every key that must resolve for the worker to start.
var RequiredKeys = []Key{
	KeyProjectID,
	KeyWorkerName,
	KeyToken,
	KeyUsername,
	KeyPassword,
	KeyAPIURI,
	KeyOAuthAuthEndpoint,
	KeyOAuthTokenEndpoint,
	KeyStateSecret,
}

// Config is the two-tier configuration. Environments maps an environment name
// to its overrides; Global holds the fallbacks.
type Config struct {
	Global       map[string]string
	Environments map[string]map[string]string
}

// New returns an empty Config ready to be populated.
func New() *Config {
	return &Config{
		Global:       make(map[string]string),
		Environments: make(map[string]map[string]string),
	}
}

// Set stores a global value.
func (c *Config) Set(key Key, value string) *Config {
	if c.Global == nil {
		c.Global = make(map[string]string)
	}
	c.Global[string(key)] = value
	return c
}

// SetFor stores a value scoped to env.
func (c *Config) SetFor(env string, key Key, value string) *Config {
	if c.Environments == nil {
		c.Environments = make(map[string]map[string]string)
	}
	if c.Environments[env] == nil {
		c.Environments[env] = make(map[string]string)
	}
	c.Environments[env][string(key)] = value
	return c
}

// EnvironmentNames lists the configured environments in sorted order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For binds the configuration to env. It fails when env has no section.
func (c *Config) For(env string) (*Resolver, error) {
	if strings.TrimSpace(env) == "" {
		return nil, &ConfigError{Env: env, Reason: "environment is not specified"}
	}
	section, ok := c.Environments[env]
	if !ok {
		return nil, &ConfigError{Env: env, Reason: "no configuration data found for this environment"}
	}
	return &Resolver{env: env, section: section, global: c.Global}, nil
}

// Resolver looks up keys for one environment.
type Resolver struct {
	env     string
	section map[string]string
	global  map[string]string
}

// Env returns the environment the resolver is bound to.
func (r *Resolver) Env() string {
	return r.env
}

// Lookup returns the environment value if present, else the global one.
func (r *Resolver) Lookup(key Key) (string, bool) {
	if v, ok := r.section[string(key)]; ok {
		return v, true
	}
	v, ok := r.global[string(key)]
	return v, ok
}

// Resolve returns the value for key or a *ConfigError when neither tier has it.
func (r *Resolver) Resolve(key Key) (string, error) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", &ConfigError{Env: r.env, Key: key, Reason: "variable not found"}
	}
	return v, nil
}

// ResolveOr returns the value for key or fallback.
func (r *Resolver) ResolveOr(key Key, fallback string) string {
	if v, ok := r.Lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

// ResolveAll resolves keys and stops at the first missing one.
func (r *Resolver) ResolveAll(keys ...Key) (map[Key]string, error) {
	values := make(map[Key]string, len(keys))
	for _, k := range keys {
		v, err := r.Resolve(k)
		if err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, nil
}

// Validate checks every required key resolves.
func (r *Resolver) Validate() error {
	_, err := r.ResolveAll(RequiredKeys...)
	return err
}

// ConfigError reports a key missing from both tiers or an unknown environment.
type ConfigError struct {
	Env    string
	Key    Key
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %s: %q", e.Reason, e.Env)
	}
	return fmt.Sprintf("config: %s: %q (env %q)", e.Reason, e.Key, e.Env)
}

func (e *ConfigError) Is(target error) bool {
	return target == ierrors.ErrConfig
}
