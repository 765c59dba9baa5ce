package secret

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/ports"
)

// Paths names where the gateway credentials live in the secret backend
type Paths struct {
	APISecret string
	PublicID  string
}

// Provider holds the current gateway credentials and refreshes them from the backend.
// Reads never touch the backend, so signature checks stay I/O free.
type Provider struct {
	store  ports.SecretManagerAdapter
	paths  Paths
	logger *zap.Logger

	mu        sync.RWMutex
	apiSecret string
	publicID  string
	loadedAt  time.Time

	cron *cron.Cron
}

// NewProvider creates a provider. fallbackPublicID is used when the
// backend has no public id, as the public id is not a secret.
func NewProvider(store ports.SecretManagerAdapter, paths Paths, fallbackPublicID string, logger *zap.Logger) *Provider {
	return &Provider{
		store:    store,
		paths:    paths,
		logger:   logger,
		publicID: fallbackPublicID,
	}
}

// NewStaticProvider returns a provider with fixed credentials, for tests and CLI use
func NewStaticProvider(apiSecret, publicID string) *Provider {
	return &Provider{
		logger:    zap.NewNop(),
		apiSecret: apiSecret,
		publicID:  publicID,
		loadedAt:  time.Now(),
	}
}

// Load reads the credentials once.
// A missing API secret is not an error here: it surfaces as a configuration
// error when a callback is verified, so the checkout side keeps working.
func (p *Provider) Load(ctx context.Context) error {
	if p.store == nil {
		return nil
	}

	apiSecret, err := p.read(ctx, p.paths.APISecret)
	if err != nil {
		p.logger.Warn("API secret could not be loaded",
			zap.String("path", p.paths.APISecret),
			zap.Error(err),
		)
	}

	publicID := ""
	if p.paths.PublicID != "" {
		if publicID, err = p.read(ctx, p.paths.PublicID); err != nil {
			p.logger.Debug("Public id not in secret backend, keeping configured value",
				zap.String("path", p.paths.PublicID),
			)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if apiSecret != "" {
		if p.apiSecret != "" && p.apiSecret != apiSecret {
			p.logger.Info("API secret rotated")
		}
		p.apiSecret = apiSecret
	}
	if publicID != "" {
		p.publicID = publicID
	}
	p.loadedAt = time.Now()
	return nil
}

func (p *Provider) read(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no secret path configured")
	}
	s, err := p.store.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

// APISecret returns the current API secret, empty when unconfigured
func (p *Provider) APISecret() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.apiSecret
}

// PublicID returns the current public credential
func (p *Provider) PublicID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.publicID
}

// LoadedAt reports when the credentials were last read
func (p *Provider) LoadedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadedAt
}

// StartRefresh reloads the credentials every interval to pick up rotations.
// A zero interval disables refresh.
func (p *Provider) StartRefresh(interval time.Duration) error {
	if interval <= 0 || p.store == nil {
		return nil
	}

	p.cron = cron.New(cron.WithSeconds())
	_, err := p.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.Load(ctx); err != nil {
			p.logger.Error("Secret refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule secret refresh: %w", err)
	}

	p.cron.Start()
	p.logger.Info("Secret refresh scheduled", zap.Duration("interval", interval))
	return nil
}

// Stop halts the refresh job and waits for a running refresh to finish
func (p *Provider) Stop(ctx context.Context) error {
	if p.cron == nil {
		return nil
	}
	select {
	case <-p.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
