package app

import (
	"net/http"
	"strings"

	"github.com/duewell/syncgate/internal/domain"
)

// apiPrefix marks API requests; everything else is page or asset traffic.
const apiPrefix = "/api/"

// Classifier routes requests to serving strategies. Rules are evaluated
// in order; the first match wins.
type Classifier struct {
	rules []domain.Rule
}

// NewClassifier creates a Classifier. A nil rule list selects the
// built-in rules.
func NewClassifier(rules []domain.Rule) *Classifier {
	if rules == nil {
		rules = domain.DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify decides the strategy for one request. Non-GET requests always
// bypass. Page navigations get the tiered shell fallback. Remaining GETs
// run through the rule list.
func (c *Classifier) Classify(r *http.Request) domain.Strategy {
	if r.Method != http.MethodGet {
		return domain.StrategyBypass
	}
	if isNavigation(r) {
		return domain.StrategyNavigation
	}
	target := requestTarget(r)
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(target) {
			return rule.Strategy
		}
	}
	return domain.StrategyBypass
}

// isNavigation reports whether a request is a page load: a GET outside
// the API that prefers an HTML answer.
func isNavigation(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		return false
	}
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// requestTarget returns the path plus query string, the form rules match.
func requestTarget(r *http.Request) string {
	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

// purposeFor maps a request path to the namespace purpose its snapshots
// live in. API responses and runtime page caches are kept apart so they
// can be swept with different policies.
func purposeFor(path string) domain.Purpose {
	if strings.HasPrefix(path, apiPrefix) {
		return domain.PurposeAPI
	}
	return domain.PurposeDynamic
}
