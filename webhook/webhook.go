// Package webhook builds the worker webhook URL registered as the OAuth
// redirect URI. The provider redirects there with the authorization code and
// the webhook queues a new task whose payload is the query string.
package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBase is the IronWorker API root used when no webhook_base is configured.
const DefaultBase = "https://worker-aws-us-east-1.iron.io/2"

// Params are the values embedded in the webhook URL.
type Params struct {
	Base       string
	ProjectID  string
	WorkerName string
	Token      string
	Env        string
}

// URL returns <base>/projects/{project_id}/tasks/webhook?code_name=..&oauth=..&env=..
func URL(p Params) (string, error) {
	base := strings.TrimRight(p.Base, "/")
	if base == "" {
		base = DefaultBase
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse webhook base: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("webhook base %q is not an absolute URL", p.Base)
	}

	switch {
	case p.ProjectID == "":
		return "", errors.New("webhook: project id is required")
	case p.WorkerName == "":
		return "", errors.New("webhook: worker name is required")
	case p.Token == "":
		return "", errors.New("webhook: token is required")
	}

	u = u.JoinPath("projects", p.ProjectID, "tasks", "webhook")

	// Keep the documented parameter order; url.Values.Encode would sort them.
	query := "code_name=" + url.QueryEscape(p.WorkerName) +
		"&oauth=" + url.QueryEscape(p.Token) +
		"&env=" + url.QueryEscape(p.Env)
	u.RawQuery = query
	return u.String(), nil
}
