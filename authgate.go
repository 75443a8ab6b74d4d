// Package authgate assembles the login handshake orchestrator from its
// parts: hostname-based environment resolution, the HTTP credential
// exchanger, the external surface bridge, and the per-environment strategy
// set.
package authgate

import (
	"github.com/marshub/authgate/backend"
	"github.com/marshub/authgate/bridge"
	"github.com/marshub/authgate/config"
	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/handshake"
	"github.com/marshub/authgate/hostenv"
	"github.com/marshub/authgate/session"
)

// Hosts carries the environment-owned collaborators the embedding
// application provides. Any nil field disables the strategies that need
// it.
type Hosts struct {
	// Widgets mounts the third-party login script into the page.
	Widgets bridge.WidgetHost
	// Windows opens the popup window for the redirect handshake.
	Windows bridge.WindowOpener
	// Sink receives the accepted session and the post-login navigation.
	Sink session.Sink
}

// NewResolver builds the hostname classifier from configuration.
func NewResolver(cfg *config.Config) hostenv.Resolver {
	return hostenv.Resolver{
		ProdHosts: cfg.ProdHosts,
		Dev:       hostenv.Target{APIURL: cfg.DevAPIURL, Domain: cfg.DevDomain},
		Prod:      hostenv.Target{APIURL: cfg.ProdAPIURL, Domain: cfg.ProdDomain},
	}
}

// NewOrchestrator resolves hostname into an environment and wires a
// complete orchestrator for it. The password strategy is always
// registered; the simulated strategy only ever runs in development and
// the widget and popup strategies only in production, which the
// orchestrator itself enforces per start.
func NewOrchestrator(cfg *config.Config, hostname string, hosts Hosts) (*handshake.Orchestrator, *bridge.Bridge) {
	env := NewResolver(cfg).Resolve(hostname)
	exchanger := backend.NewClient(env.BackendBaseURL)

	opts := []handshake.Option{
		handshake.WithStrategy(hostenv.StrategySimulated, flow.NewSimulatedStrategy(), ""),
	}
	if hosts.Sink != nil {
		opts = append(opts, handshake.WithSink(hosts.Sink))
	}

	var b *bridge.Bridge
	if hosts.Widgets != nil || hosts.Windows != nil {
		b = bridge.New(hosts.Widgets, hosts.Windows, bridge.WidgetParams{
			ScriptSrc:   cfg.TelegramWidgetSrc,
			BotUsername: cfg.TelegramBotUsername,
		})
		opts = append(opts, handshake.WithSurfaces(b))
		if hosts.Widgets != nil {
			opts = append(opts, handshake.WithStrategy(
				hostenv.StrategyWidget, flow.NewWidgetStrategy(b), cfg.WidgetLoginPath))
		}
		if hosts.Windows != nil {
			opts = append(opts, handshake.WithStrategy(
				hostenv.StrategyPopup,
				flow.NewPopupStrategy(b, cfg.TelegramBotID, env.CallbackOrigin),
				cfg.PopupLoginPath))
		}
	}

	return handshake.New(env, exchanger, opts...), b
}
