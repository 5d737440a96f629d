// Package ports manages the host-to-container TCP forwarding rules as LXD
// proxy devices.
package ports

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lxdpanel/internal/config"
	"lxdpanel/pkg/lxd"
)

// Rule is a fully resolved forwarding rule.
type Rule struct {
	Name    string `json:"name" yaml:"name"`
	Listen  string `json:"listen" yaml:"listen"`
	Connect string `json:"connect" yaml:"connect"`
}

// RuleStatus is the observed state of a rule, for status reporting.
type RuleStatus struct {
	Rule    `yaml:",inline"`
	Exists  bool `json:"exists" yaml:"exists"`
	Drifted bool `json:"drifted" yaml:"drifted"`
}

// RulesFromConfig expands the configured forwards into proxy-device specs.
func RulesFromConfig(cfg config.ForwardsConfig) []Rule {
	rules := make([]Rule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, Rule{
			Name:    rule.Name,
			Listen:  fmt.Sprintf("tcp:%s:%d", cfg.ListenAddress, rule.ListenPort),
			Connect: fmt.Sprintf("tcp:127.0.0.1:%d", rule.ConnectPort),
		})
	}
	return rules
}

// Exposer creates missing proxy devices on the container. Existing devices
// are never updated, even when their parameters have drifted from the
// configured rule.
type Exposer struct {
	client    lxd.Client
	container string
}

func NewExposer(client lxd.Client, cfg config.ContainerConfig) *Exposer {
	return &Exposer{client: client, container: cfg.Name}
}

// Ensure creates every absent rule and reports how many it created.
func (e *Exposer) Ensure(ctx context.Context, rules []Rule) (int, error) {
	created := 0
	for _, rule := range rules {
		exists, err := e.client.DeviceExists(ctx, e.container, rule.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check forward rule %s: %w", rule.Name, err)
		}
		if exists {
			log.Info().Str("device", rule.Name).Msg("Forward rule already present")
			continue
		}

		if err := e.client.AddProxyDevice(ctx, e.container, rule.Name, rule.Listen, rule.Connect); err != nil {
			return created, fmt.Errorf("failed to create forward rule %s: %w", rule.Name, err)
		}
		created++
	}
	return created, nil
}

// Inspect reports each rule's existence and whether a present device's
// parameters drifted from the configured values. Drift is report-only.
func (e *Exposer) Inspect(ctx context.Context, rules []Rule) ([]RuleStatus, error) {
	statuses := make([]RuleStatus, 0, len(rules))
	for _, rule := range rules {
		status := RuleStatus{Rule: rule}

		exists, err := e.client.DeviceExists(ctx, e.container, rule.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check forward rule %s: %w", rule.Name, err)
		}
		status.Exists = exists

		if exists {
			listen, err := e.client.DeviceGet(ctx, e.container, rule.Name, "listen")
			if err != nil {
				return nil, err
			}
			connect, err := e.client.DeviceGet(ctx, e.container, rule.Name, "connect")
			if err != nil {
				return nil, err
			}
			status.Drifted = listen != rule.Listen || connect != rule.Connect
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}
