package site

import (
	"fmt"
	"strings"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
)

// BaseURLProvider builds the site root from site.domain_method and site.domain.
// It reads the configuration on every call so reloads take effect.
type BaseURLProvider struct {
	cfgProvider config.Provider
}

// NewBaseURLProvider creates a BaseURLProvider.
func NewBaseURLProvider(cfgProvider config.Provider) *BaseURLProvider {
	return &BaseURLProvider{cfgProvider: cfgProvider}
}

// BaseURL returns e.g. "https://reviews.example.com", without a trailing slash
// since review request paths start with one.
func (p *BaseURLProvider) BaseURL() string {
	s := p.cfgProvider.Get().Site
	return fmt.Sprintf("%s://%s", s.DomainMethod, strings.TrimRight(s.Domain, "/"))
}
