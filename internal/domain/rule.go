package domain

import (
	"fmt"
	"regexp"
)

// Strategy selects how the gateway serves a request.
type Strategy int

const (
	// StrategyBypass forwards to the upstream without touching snapshots.
	StrategyBypass Strategy = iota

	// StrategyNetworkFirst tries the upstream and falls back to a snapshot.
	StrategyNetworkFirst

	// StrategyCachePreferred tries the upstream first as well; the name
	// reflects rule-list membership, the fallback shape is shared.
	StrategyCachePreferred

	// StrategyNavigation serves page loads with the tiered shell fallback.
	StrategyNavigation
)

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyBypass:
		return "bypass"
	case StrategyNetworkFirst:
		return "network-first"
	case StrategyCachePreferred:
		return "cache-preferred"
	case StrategyNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// Rule maps a request pattern to a serving strategy. Rules are evaluated
// in order against the request path plus query string; the first match wins.
type Rule struct {
	Pattern  *regexp.Regexp
	Strategy Strategy
}

// NewRule compiles a rule from a pattern expression.
func NewRule(expr string, s Strategy) (Rule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule pattern %q: %w", expr, err)
	}
	return Rule{Pattern: re, Strategy: s}, nil
}

// MustRule compiles a rule and panics on an invalid pattern. Intended for
// the built-in rule tables.
func MustRule(expr string, s Strategy) Rule {
	r, err := NewRule(expr, s)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules returns the built-in routing rules. Network-first rules
// precede cache-preferred rules so that auth, mutations and payment reads
// are never served stale when a fresher answer is reachable.
func DefaultRules() []Rule {
	return []Rule{
		MustRule(`^/api/auth/`, StrategyNetworkFirst),
		MustRule(`^/api/.+/(create|update|delete)`, StrategyNetworkFirst),
		MustRule(`^/api/.+/send-reminder`, StrategyNetworkFirst),
		MustRule(`^/api/payments/`, StrategyNetworkFirst),
		MustRule(`^/api/analytics/summary`, StrategyCachePreferred),
		MustRule(`^/api/invoices(\?|$)`, StrategyCachePreferred),
		MustRule(`^/api/clients(\?|$)`, StrategyCachePreferred),
	}
}

// QueueRoute maps a request pattern to a mutation kind. Write requests
// that fail in transit and match a route are queued for background replay
// instead of surfacing the failure.
type QueueRoute struct {
	Pattern *regexp.Regexp
	Kind    string
}

// MustQueueRoute compiles a queue route and panics on an invalid pattern.
func MustQueueRoute(expr, kind string) QueueRoute {
	re, err := regexp.Compile(expr)
	if err != nil {
		panic(fmt.Errorf("compile queue route pattern %q: %w", expr, err))
	}
	return QueueRoute{Pattern: re, Kind: kind}
}

// DefaultQueueRoutes returns the built-in queue routes. The reminder route
// comes first so reminder sends nested under a resource path are not
// claimed by the broader resource routes.
func DefaultQueueRoutes() []QueueRoute {
	return []QueueRoute{
		MustQueueRoute(`^/api/.+/send-reminder`, "reminder"),
		MustQueueRoute(`^/api/invoices`, "invoice"),
		MustQueueRoute(`^/api/payments`, "payment"),
		MustQueueRoute(`^/api/clients`, "client"),
	}
}
