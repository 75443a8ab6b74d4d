// Package hostenv derives the execution environment from a hostname.
//
// The environment is resolved once per process and treated as read-only
// configuration afterwards: it fixes the backend base URL, the origin used
// for third-party callbacks, and which login strategies may be started at
// all. Hostnames outside the loopback aliases and the production allow-list
// resolve to Unrecognized, which still serves the UI but refuses strategies
// that depend on a trusted callback origin.
package hostenv

import "strings"

// Kind classifies the execution context.
type Kind int

const (
	Unrecognized Kind = iota
	Development
	Production
)

func (k Kind) String() string {
	switch k {
	case Development:
		return "development"
	case Production:
		return "production"
	default:
		return "unrecognized"
	}
}

// Strategy identifies one way of obtaining a login credential.
type Strategy string

const (
	StrategyPassword  Strategy = "password"
	StrategyWidget    Strategy = "widget"
	StrategyPopup     Strategy = "popup"
	StrategySimulated Strategy = "simulated"
)

// Target is the backend and callback origin for one environment kind.
type Target struct {
	APIURL string
	Domain string
}

// Resolver holds the hostname allow-list and per-environment targets.
// The list is data, not conditionals, so tests can inject hostnames.
type Resolver struct {
	ProdHosts []string
	Dev       Target
	Prod      Target
}

// Environment is the resolved, immutable configuration for one process.
type Environment struct {
	Kind           Kind
	Hostname       string
	BackendBaseURL string
	// CallbackOrigin is the https origin handed to the third party as the
	// trusted destination for popup redirects, hostname only in Domain form.
	CallbackOrigin string
	Domain         string
}

// Resolve classifies hostname and returns the environment configuration.
// Loopback aliases are development; exact membership in ProdHosts is
// production; everything else is unrecognized and falls back to the
// production target so the page still renders.
func (r Resolver) Resolve(hostname string) Environment {
	switch {
	case isLoopback(hostname):
		return Environment{
			Kind:           Development,
			Hostname:       hostname,
			BackendBaseURL: r.Dev.APIURL,
			CallbackOrigin: "http://" + cleanDomain(r.Dev.Domain),
			Domain:         cleanDomain(r.Dev.Domain),
		}
	case contains(r.ProdHosts, hostname):
		return Environment{
			Kind:           Production,
			Hostname:       hostname,
			BackendBaseURL: r.Prod.APIURL,
			CallbackOrigin: "https://" + cleanDomain(r.Prod.Domain),
			Domain:         cleanDomain(r.Prod.Domain),
		}
	default:
		return Environment{
			Kind:           Unrecognized,
			Hostname:       hostname,
			BackendBaseURL: r.Prod.APIURL,
			CallbackOrigin: "https://" + cleanDomain(r.Prod.Domain),
			Domain:         cleanDomain(r.Prod.Domain),
		}
	}
}

// Allows reports whether a strategy may be started in this environment.
// Widget and popup need a trusted callback origin, so they are limited to
// production; the simulated strategy must be unreachable outside
// development.
func (e Environment) Allows(s Strategy) bool {
	switch s {
	case StrategyPassword:
		return true
	case StrategySimulated:
		return e.Kind == Development
	case StrategyWidget, StrategyPopup:
		return e.Kind == Production
	default:
		return false
	}
}

func isLoopback(hostname string) bool {
	return hostname == "localhost" || hostname == "127.0.0.1" || strings.Contains(hostname, "localhost")
}

func contains(hosts []string, hostname string) bool {
	for _, h := range hosts {
		if h == hostname {
			return true
		}
	}
	return false
}

// cleanDomain strips a scheme prefix; the third party wants a bare
// hostname.
func cleanDomain(d string) string {
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return d
}
