package app

import (
	"fmt"

	"github.com/jugend/amazon-ecs/internal/config"
	"github.com/jugend/amazon-ecs/internal/logger"
	"github.com/jugend/amazon-ecs/pkg/ecs"
	"github.com/jugend/amazon-ecs/pkg/endpoints"
	"github.com/jugend/amazon-ecs/pkg/httpclient"
	"github.com/jugend/amazon-ecs/pkg/signer"
)

// NewClient builds the catalog client described by cfg.
func NewClient(cfg *config.Config, log logger.Logger) (*ecs.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	table, err := endpoints.Load(cfg.EndpointsFile)
	if err != nil {
		return nil, fmt.Errorf("load endpoints: %w", err)
	}
	if _, err := table.Lookup(cfg.Country); err != nil {
		return nil, err
	}

	defaults := signer.Params{}
	if cfg.APIVersion != "" {
		defaults.Set("Version", cfg.APIVersion)
	}
	if cfg.ResponseGroup != "" {
		defaults.Set("ResponseGroup", cfg.ResponseGroup)
	}

	return ecs.NewClient(ecs.Options{
		Defaults:          defaults,
		Country:           cfg.Country,
		AccessKeyID:       cfg.AccessKeyID,
		SecretKey:         cfg.SecretKey,
		AssociateTag:      cfg.AssociateTag,
		Debug:             cfg.Debug,
		HideErrors:        cfg.HideErrors,
		Endpoints:         table,
		HTTPClient:        httpclient.NewRestyClient(cfg.HTTPTimeout).WithRetries(cfg.HTTPRetries, cfg.HTTPRetryWait),
		Logger:            log,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}), nil
}
