package site_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/review-xmpp-notifier/benchmarks/mocks"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/site"
)

func TestBaseURL(t *testing.T) {
	cfg := mocks.NewMockConfigProvider()
	p := site.NewBaseURLProvider(cfg)

	assert.Equal(t, "https://reviews.example.com", p.BaseURL())
}

func TestBaseURLTrimsTrailingSlashAndFollowsReloads(t *testing.T) {
	cfg := mocks.NewMockConfigProvider()
	p := site.NewBaseURLProvider(cfg)

	next := *cfg.Get()
	next.Site = config.SiteConfig{DomainMethod: "http", Domain: "localhost:8000/"}
	cfg.UpdateConfig(&next)

	assert.Equal(t, "http://localhost:8000", p.BaseURL())
}
