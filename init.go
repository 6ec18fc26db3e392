package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/shopmesh/parceline-bridge/internal/config"
	"github.com/shopmesh/parceline-bridge/internal/hooks"
	"github.com/shopmesh/parceline-bridge/internal/server"
	"github.com/shopmesh/parceline-bridge/internal/telemetry"
	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/shopmesh/parceline-bridge/pkg/shipper/parceline"
	"github.com/shopmesh/parceline-bridge/pkg/shipper/parceline/auth"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics()
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (*shipper.Registry, error) {
	registry := shipper.NewRegistry()

	var store auth.Store
	if cfg.TokenStore == "redis" {
		store = auth.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}), cfg.RedisTokenKey)
	}

	pc := parceline.New(parceline.Config{
		BaseURL:             cfg.ParcelineBaseURL,
		TokenURL:            cfg.ParcelineTokenURL,
		SubscriptionKey:     cfg.ParcelineSubscriptionKey,
		Grant:               auth.GrantType(cfg.ParcelineGrantType),
		ClientID:            cfg.ParcelineClientID,
		ClientSecret:        cfg.ParcelineClientSecret,
		Username:            cfg.ParcelineUsername,
		Password:            cfg.ParcelinePassword,
		Scope:               cfg.ParcelineScope,
		PayerMDMAccount:     cfg.ParcelinePayerMDM,
		ConsignorMDMAccount: cfg.ParcelineConsignorMDM,
		ExpiryBuffer:        cfg.ParcelineExpiryBuffer,
		QuoteTTL:            cfg.QuoteTTL,
		QuoteCacheSize:      cfg.QuoteCacheSize,
		RequestsPerSecond:   cfg.ParcelineRPS,
		TokenStore:          store,
		OnTokenExchange:     metrics.RecordTokenExchange,
		OnQuoteCacheLookup:  metrics.RecordQuoteCacheLookup,
		UseMock:             cfg.ParcelineUseMock,
	}, logger, nil)
	registry.Register(pc)

	return registry, nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Port: cfg.Port,
		Hooks: hooks.HandlerConfig{
			Origin: shipper.Address{
				Name:        cfg.OriginName,
				Line1:       cfg.OriginLine1,
				City:        cfg.OriginCity,
				CityCode:    cfg.OriginCityCode,
				Province:    cfg.OriginProvince,
				PostalCode:  cfg.OriginPostalCode,
				CountryCode: cfg.OriginCountry,
				Phone:       cfg.OriginPhone,
			},
			Sender: shipper.Contact{
				Name:       cfg.OriginName,
				Phone:      cfg.OriginPhone,
				MDMAccount: cfg.ParcelineConsignorMDM,
			},
			DefaultServiceLevel: cfg.DefaultServiceLevel,
		},
	}
}
