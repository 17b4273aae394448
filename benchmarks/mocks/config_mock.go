package mocks

import (
	"sync/atomic"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
)

// MockConfigProvider implements config.Provider with a swappable Config.
type MockConfigProvider struct {
	config atomic.Pointer[config.Config]
}

// NewMockConfigProvider creates a provider holding a valid configuration that
// points at hosts nothing listens on.
func NewMockConfigProvider() *MockConfigProvider {
	m := &MockConfigProvider{}
	m.config.Store(&config.Config{
		Server: config.ServerConfig{
			HTTPPort: 0, // Random port
		},
		Site: config.SiteConfig{
			DomainMethod: "https",
			Domain:       "reviews.example.com",
		},
		XMPP: config.XMPPConfig{
			Host:                  "xmpp.example.com",
			Port:                  5222,
			SenderJID:             "notifier@example.com",
			SenderPassword:        "benchmark-sender-password",
			UseTLS:                true,
			TLSSkipVerify:         true,
			Resource:              "review-notifier",
			SessionTimeoutSeconds: 5,
		},
		NATS: config.NATSConfig{
			URL:           "nats://mock-nats:4222",
			StreamName:    "reviewboard_events",
			ConsumerName:  "review-xmpp-notifier",
			QueueGroup:    "review-xmpp-notifier",
			SubjectPrefix: "reviewboard.events",
		},
		Redis: config.RedisConfig{
			Address: "mock-redis:6379",
		},
		Log: config.LogConfig{
			Level: "error", // Minimize I/O overhead during benchmarks
		},
		App: config.AppConfig{
			ServiceName:            "review-xmpp-notifier-test",
			Version:                "test",
			ShutdownTimeoutSeconds: 1,
			DedupTTLSeconds:        60,
			NatsAckWaitSeconds:     1,
			NATSMaxAckPending:      16,
		},
	})
	return m
}

// Get implements config.Provider
func (m *MockConfigProvider) Get() *config.Config {
	return m.config.Load()
}

// UpdateConfig replaces the whole configuration, like a hot reload would.
func (m *MockConfigProvider) UpdateConfig(cfg *config.Config) {
	m.config.Store(cfg)
}

// UpdateXMPP applies fn to a copy of the current configuration's XMPP section.
func (m *MockConfigProvider) UpdateXMPP(fn func(x *config.XMPPConfig)) {
	cfg := *m.config.Load()
	fn(&cfg.XMPP)
	m.config.Store(&cfg)
}
