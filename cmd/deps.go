// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/LeeDigitalWorks/s3dr/pkg/awsclient"
	"github.com/LeeDigitalWorks/s3dr/pkg/config"
	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/logger"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/storage"
)

// app holds the clients shared by the subcommands.
type app struct {
	cfg  config.Config
	pool *awsclient.Pool

	source *storage.Buckets
	dest   *storage.Buckets
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	pool := awsclient.NewPool(cfg.S3)

	srcClient, err := pool.S3(ctx, cfg.SourceRegion)
	if err != nil {
		return nil, fmt.Errorf("source region client: %w", err)
	}
	dstClient, err := pool.S3(ctx, cfg.DestRegion)
	if err != nil {
		return nil, fmt.Errorf("destination region client: %w", err)
	}

	return &app{
		cfg:    cfg,
		pool:   pool,
		source: storage.NewBuckets(srcClient, cfg.SourceRegion),
		dest:   storage.NewBuckets(dstClient, cfg.DestRegion),
	}, nil
}

// ruleTemplate resolves the replication role and the replica key once, so
// every rule written by this process uses full ARNs.
func (a *app) ruleTemplate(ctx context.Context) (dr.RuleTemplate, error) {
	if err := a.cfg.ValidateReplication(); err != nil {
		return dr.RuleTemplate{}, err
	}

	stsClient, err := a.pool.STS(ctx, a.cfg.SourceRegion)
	if err != nil {
		return dr.RuleTemplate{}, err
	}
	role, err := config.ResolveRoleARN(ctx, stsClient, a.cfg.ReplicationRole)
	if err != nil {
		return dr.RuleTemplate{}, err
	}

	var keyARN string
	if a.cfg.ReplicaKMSKeyID != "" {
		kmsClient, err := a.pool.KMS(ctx, a.cfg.DestRegion)
		if err != nil {
			return dr.RuleTemplate{}, err
		}
		if keyARN, err = storage.ResolveKeyARN(ctx, kmsClient, a.cfg.ReplicaKMSKeyID); err != nil {
			return dr.RuleTemplate{}, err
		}
	}

	logger.Debug().Str("role", role).Str("kms_key", keyARN).Msg("resolved replication rule template")
	return a.cfg.RuleTemplate(role, keyARN), nil
}

// openBus connects the hand-off backend. subscribe also opens the consumer
// side, which only serve needs.
func (a *app) openBus(ctx context.Context, subscribe bool) (*notify.Bus, error) {
	if err := a.cfg.ValidateNotify(); err != nil {
		return nil, err
	}

	var snsClient notify.SNSAPI
	if a.cfg.Notify.Backend == notify.BackendSNS {
		c, err := a.pool.SNS(ctx, a.cfg.Notify.Region)
		if err != nil {
			return nil, err
		}
		snsClient = c
	}
	return notify.Open(ctx, a.cfg.Notify, snsClient, subscribe)
}

func (a *app) watcher(pub notify.Publisher) *dr.Watcher {
	return dr.NewWatcher(dr.WatcherConfig{
		Source:       a.source,
		Publisher:    pub,
		Channel:      a.cfg.Notify.ProvisionChannel,
		RequiredTags: a.cfg.RequiredTags(),
	})
}

func (a *app) provisioner(pub notify.Publisher) *dr.Provisioner {
	return dr.NewProvisioner(dr.ProvisionerConfig{
		Destination:   a.dest,
		Publisher:     pub,
		Channel:       a.cfg.Notify.ReplicationChannel,
		LoggingBucket: a.cfg.LoggingBucket,
	})
}

func (a *app) enabler(rule dr.RuleTemplate) *dr.Enabler {
	return dr.NewEnabler(dr.EnablerConfig{
		Source:      a.source,
		Destination: a.dest,
		Rule:        rule,
	})
}

func (a *app) bootstrap(rule dr.RuleTemplate, rate float64, burst int) *dr.Bootstrap {
	return dr.NewBootstrap(dr.BootstrapConfig{
		Source:        a.source,
		Destination:   a.dest,
		RequiredTags:  a.cfg.RequiredTags(),
		Rule:          rule,
		LoggingBucket: a.cfg.LoggingBucket,
		Rate:          rate,
		Burst:         burst,
	})
}

func (a *app) Close() error {
	return a.pool.Close()
}
