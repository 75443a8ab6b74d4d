package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marshub/authgate"
	"github.com/marshub/authgate/config"
	"github.com/marshub/authgate/handshake"
	"github.com/marshub/authgate/hostenv"
	"github.com/marshub/authgate/session"
)

// CLI holds the client configuration
type CLI struct {
	BaseURL string
	Client  *http.Client
}

func (c *CLI) registerCommand(args []string) error {
	opts := parseArgs(args)
	if opts["username"] == "" || opts["email"] == "" || opts["password"] == "" {
		return fmt.Errorf("register requires --username, --email and --password")
	}

	data, err := c.post("/api/v1/auth/register", map[string]string{
		"username": opts["username"],
		"email":    opts["email"],
		"password": opts["password"],
	})
	if err != nil {
		return err
	}
	return prettyPrint(data)
}

func (c *CLI) loginCommand(args []string) error {
	opts := parseArgs(args)

	o := c.newOrchestrator()
	attempt, err := o.SubmitPassword(context.Background(), opts["email"], opts["password"])
	if err != nil {
		return err
	}
	return reportResult(attempt.Result())
}

func (c *CLI) simulateCommand(args []string) error {
	o := c.newOrchestrator()
	attempt, err := o.Start(context.Background(), hostenv.StrategySimulated)
	if err != nil {
		return err
	}
	return reportResult(attempt.Result())
}

// newOrchestrator wires the handshake against the dev backend, the same
// assembly an embedding application would use. The CLI has no page to
// host a widget or a popup in, so only the password and simulated
// strategies are available.
func (c *CLI) newOrchestrator() *handshake.Orchestrator {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = &config.Config{}
	}
	cfg.DevAPIURL = c.BaseURL

	o, _ := authgate.NewOrchestrator(cfg, "localhost", authgate.Hosts{
		Sink: session.SinkFuncs{
			Authenticated: func(s session.Session) {
				fmt.Printf("token: %s\n", s.Token)
				if len(s.User) > 0 {
					prettyPrint(s.User)
				}
			},
		},
	})
	return o
}

func reportResult(res handshake.Result) error {
	if res.Status == handshake.StatusSucceeded {
		return nil
	}
	if res.Message != "" {
		return fmt.Errorf("%s: %s", res.Status, res.Message)
	}
	return fmt.Errorf("%s: %v", res.Status, res.Err)
}

// ---- HTTP Helpers ----

func (c *CLI) post(path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(out))
	}
	return out, nil
}

// ---- Utility Functions ----

func parseArgs(args []string) map[string]string {
	opts := make(map[string]string)
	for _, arg := range args {
		if strings.HasPrefix(arg, "--") {
			parts := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
			if len(parts) == 2 {
				opts[parts[0]] = parts[1]
			} else {
				opts[parts[0]] = "true"
			}
		}
	}
	return opts
}

func prettyPrint(data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
