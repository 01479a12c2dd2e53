// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package awsclient caches AWS SDK configurations and service clients per
// region. DR handlers talk to the source region and the DR region in the
// same invocation, so clients are keyed by region rather than built once.
package awsclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Config holds connection overrides. The zero value uses the default AWS
// credential chain and public endpoints.
type Config struct {
	// Endpoint overrides the S3 endpoint (S3-compatible stores, local testing).
	Endpoint string

	// PathStyle forces path-style S3 addressing.
	PathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials when both are set.
	AccessKeyID     string
	SecretAccessKey string

	// Timeout bounds each HTTP request (default 30s).
	Timeout time.Duration
}

// Pool hands out SDK clients per region.
type Pool struct {
	cfg Config

	mu      sync.Mutex
	configs map[string]aws.Config
	s3      map[string]*s3.Client

	httpClient *http.Client

	// load is swapped in tests.
	load func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)
}

// NewPool creates a client pool.
func NewPool(cfg Config) *Pool {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Pool{
		cfg:     cfg,
		configs: make(map[string]aws.Config),
		s3:      make(map[string]*s3.Client),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		load: config.LoadDefaultConfig,
	}
}

// AWSConfig returns the SDK configuration for region.
func (p *Pool) AWSConfig(ctx context.Context, region string) (aws.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.awsConfigLocked(ctx, region)
}

func (p *Pool) awsConfigLocked(ctx context.Context, region string) (aws.Config, error) {
	if cfg, ok := p.configs[region]; ok {
		return cfg, nil
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(p.httpClient),
	}
	if p.cfg.AccessKeyID != "" && p.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.cfg.AccessKeyID, p.cfg.SecretAccessKey, ""),
		))
	}

	cfg, err := p.load(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	p.configs[region] = cfg

	logger.Debug().
		Str("region", region).
		Str("endpoint", p.cfg.Endpoint).
		Msg("loaded aws config")

	return cfg, nil
}

// S3 returns a cached S3 client for region.
func (p *Pool) S3(ctx context.Context, region string) (*s3.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.s3[region]; ok {
		return client, nil
	}

	cfg, err := p.awsConfigLocked(ctx, region)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, p.s3Options()...)
	p.s3[region] = client
	return client, nil
}

func (p *Pool) s3Options() []func(*s3.Options) {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = p.cfg.PathStyle
		},
	}
	if p.cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(p.cfg.Endpoint)
		})
	}
	return opts
}

// SNS returns an SNS client for region.
func (p *Pool) SNS(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := p.AWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

// STS returns an STS client for region.
func (p *Pool) STS(ctx context.Context, region string) (*sts.Client, error) {
	cfg, err := p.AWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg), nil
}

// KMS returns a KMS client for region.
func (p *Pool) KMS(ctx context.Context, region string) (*kms.Client, error) {
	cfg, err := p.AWSConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return kms.NewFromConfig(cfg), nil
}

// Close releases idle connections and forgets cached clients.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.configs = make(map[string]aws.Config)
	p.s3 = make(map[string]*s3.Client)
	p.httpClient.CloseIdleConnections()

	return nil
}
