package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/config"
	"github.com/mikey/usenet-explorer/internal/nntp"
)

// DialerFactory creates news provider dialers
type DialerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewDialerFactory creates a new dialer factory
func NewDialerFactory(cfg *config.Config, logger *zap.Logger) *DialerFactory {
	return &DialerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDialer creates a dialer for the configured provider
func (f *DialerFactory) CreateDialer() (*nntp.Dialer, error) {
	providerCfg := f.cfg.GetProvider()
	if providerCfg.Host == "" {
		return nil, fmt.Errorf("provider.host is not configured")
	}
	return nntp.NewDialer(nntp.Config{
		Host:     providerCfg.Host,
		Port:     providerCfg.Port,
		TLS:      providerCfg.TLS,
		Username: providerCfg.Username,
		Password: providerCfg.Password,
		Timeout:  providerCfg.Timeout,
	}, f.logger), nil
}
