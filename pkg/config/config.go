// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads s3dr settings. Precedence is flag > environment >
// config file > default, with the lowercase environment names of the
// deployed Lambda functions accepted as aliases.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/s3dr/pkg/awsclient"
	"github.com/LeeDigitalWorks/s3dr/pkg/dr"
	"github.com/LeeDigitalWorks/s3dr/pkg/notify"
	"github.com/LeeDigitalWorks/s3dr/pkg/tags"
	"github.com/LeeDigitalWorks/s3dr/pkg/taskqueue"

	"github.com/spf13/viper"
)

// Keys.
const (
	KeyMatchTagging       = "match_tagging"
	KeySourceRegion       = "source_region"
	KeyDestRegion         = "dest_region"
	KeyReplicationRole    = "replication_role_arn"
	KeyLoggingBucket      = "s3_logging_bucket"
	KeyStorageClass       = "storage_class"
	KeyReplicaKMSKeyID    = "replica_kms_key_id"
	KeyS3Endpoint         = "s3_endpoint"
	KeyS3PathStyle        = "s3_path_style"
	KeyS3Timeout          = "s3_timeout"
	KeyS3AccessKeyID      = "s3_access_key_id"
	KeyS3SecretAccessKey  = "s3_secret_access_key"
	KeyDebugPort          = "debug_port"
	KeyBootstrapRate      = "bootstrap_rate"
	KeyBootstrapBurst     = "bootstrap_burst"
	KeyNotifyBackend      = "notify.backend"
	KeyProvisionChannel   = "notify.provision_channel"
	KeyReplicationChannel = "notify.replication_channel"
	KeyNotifyRegion       = "notify.region"
	KeyQueueConcurrency   = "notify.queue_concurrency"
	KeyQueueHistory       = "notify.queue_history"
	KeyRedisAddr          = "notify.redis.addr"
	KeyRedisPassword      = "notify.redis.password"
	KeyRedisDB            = "notify.redis.db"
	KeyRedisDialTimeout   = "notify.redis.dial_timeout"
	KeyKafkaBrokers       = "notify.kafka.brokers"
	KeyKafkaGroupID       = "notify.kafka.group_id"
	KeyKafkaRequiredAcks  = "notify.kafka.required_acks"
	KeyKafkaWriteTimeout  = "notify.kafka.write_timeout"
	KeyKafkaTLS           = "notify.kafka.tls"
	KeyKafkaTLSSkipVerify = "notify.kafka.tls_skip_verify"
	KeyKafkaSASLMechanism = "notify.kafka.sasl_mechanism"
	KeyKafkaSASLUsername  = "notify.kafka.sasl_username"
	KeyKafkaSASLPassword  = "notify.kafka.sasl_password"
)

// DefaultMatchTagging is the tag a bucket needs to opt into DR.
const DefaultMatchTagging = `{"DR":"true"}`

// Config is the resolved process configuration.
type Config struct {
	MatchTagging    string
	SourceRegion    string
	DestRegion      string
	ReplicationRole string
	LoggingBucket   string
	StorageClass    string
	ReplicaKMSKeyID string

	S3 awsclient.Config

	Notify notify.Config

	DebugPort      int
	BootstrapRate  float64
	BootstrapBurst int

	requiredTags tags.Set
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

// SetDefaults registers every default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMatchTagging, DefaultMatchTagging)
	v.SetDefault(KeySourceRegion, "us-west-2")
	v.SetDefault(KeyDestRegion, "us-east-2")
	v.SetDefault(KeyStorageClass, "STANDARD")
	v.SetDefault(KeyS3Timeout, 30*time.Second)
	v.SetDefault(KeyDebugPort, 8080)
	v.SetDefault(KeyBootstrapRate, 5.0)
	v.SetDefault(KeyBootstrapBurst, 1)
	v.SetDefault(KeyNotifyBackend, notify.BackendSNS)
	v.SetDefault(KeyQueueConcurrency, taskqueue.DefaultConcurrency)
	v.SetDefault(KeyQueueHistory, taskqueue.DefaultHistoryLimit)
	v.SetDefault(KeyRedisDialTimeout, 5*time.Second)
	v.SetDefault(KeyKafkaGroupID, "s3dr")
	v.SetDefault(KeyKafkaRequiredAcks, -1)
	v.SetDefault(KeyKafkaWriteTimeout, 10*time.Second)
}

// BindEnv maps keys to environment variables. Dotted keys use "_".
func BindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string][]string{
		KeyMatchTagging:     {"MATCH_TAGGING", "match_tagging"},
		KeyDestRegion:       {"DEST_REGION", "dest_region"},
		KeyReplicationRole:  {"REPLICATION_ROLE_ARN", "replication_role_arn"},
		KeyLoggingBucket:    {"S3_LOGGING_BUCKET", "s3_logging_bucket"},
		KeyProvisionChannel: {"NOTIFY_PROVISION_CHANNEL", "SNS_TOPIC_ARN", "sns_topic_arn"},
	}
	for key, names := range aliases {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// Load reads Config from v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		MatchTagging:    v.GetString(KeyMatchTagging),
		SourceRegion:    v.GetString(KeySourceRegion),
		DestRegion:      v.GetString(KeyDestRegion),
		ReplicationRole: v.GetString(KeyReplicationRole),
		LoggingBucket:   v.GetString(KeyLoggingBucket),
		StorageClass:    v.GetString(KeyStorageClass),
		ReplicaKMSKeyID: v.GetString(KeyReplicaKMSKeyID),
		S3: awsclient.Config{
			Endpoint:  v.GetString(KeyS3Endpoint),
			PathStyle: v.GetBool(KeyS3PathStyle),
			Timeout:   v.GetDuration(KeyS3Timeout),

			AccessKeyID:     v.GetString(KeyS3AccessKeyID),
			SecretAccessKey: v.GetString(KeyS3SecretAccessKey),
		},
		Notify: notify.Config{
			Backend:            v.GetString(KeyNotifyBackend),
			ProvisionChannel:   v.GetString(KeyProvisionChannel),
			ReplicationChannel: v.GetString(KeyReplicationChannel),
			Region:             v.GetString(KeyNotifyRegion),
			QueueConcurrency:   v.GetInt(KeyQueueConcurrency),
			QueueHistory:       v.GetInt(KeyQueueHistory),
			Redis: notify.RedisConfig{
				Addr:        v.GetString(KeyRedisAddr),
				Password:    v.GetString(KeyRedisPassword),
				DB:          v.GetInt(KeyRedisDB),
				DialTimeout: v.GetDuration(KeyRedisDialTimeout),
			},
			Kafka: notify.KafkaConfig{
				Brokers:       splitList(v.GetStringSlice(KeyKafkaBrokers)),
				GroupID:       v.GetString(KeyKafkaGroupID),
				RequiredAcks:  v.GetInt(KeyKafkaRequiredAcks),
				WriteTimeout:  v.GetDuration(KeyKafkaWriteTimeout),
				TLS:           v.GetBool(KeyKafkaTLS),
				TLSSkipVerify: v.GetBool(KeyKafkaTLSSkipVerify),
				SASLMechanism: v.GetString(KeyKafkaSASLMechanism),
				SASLUsername:  v.GetString(KeyKafkaSASLUsername),
				SASLPassword:  v.GetString(KeyKafkaSASLPassword),
			},
		},
		DebugPort:      v.GetInt(KeyDebugPort),
		BootstrapRate:  v.GetFloat64(KeyBootstrapRate),
		BootstrapBurst: v.GetInt(KeyBootstrapBurst),
	}

	if c.Notify.Region == "" {
		c.Notify.Region = c.SourceRegion
	}
	if c.Notify.Backend != notify.BackendSNS {
		if c.Notify.ProvisionChannel == "" {
			c.Notify.ProvisionChannel = string(taskqueue.TaskTypeProvision)
		}
		if c.Notify.ReplicationChannel == "" {
			c.Notify.ReplicationChannel = string(taskqueue.TaskTypeReplicate)
		}
	}

	required, err := tags.ParseJSON(c.MatchTagging)
	if err != nil {
		return c, fmt.Errorf("%s: %w", KeyMatchTagging, err)
	}
	c.requiredTags = required

	return c, nil
}

// splitList accepts both list values and a single comma-separated string,
// which is how lists arrive through the environment.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// RequiredTags returns the normalized tags a bucket needs to be in scope.
func (c Config) RequiredTags() tags.Set {
	return c.requiredTags
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error
	if len(c.requiredTags) == 0 {
		errs = append(errs, fmt.Errorf("%s must name at least one tag", KeyMatchTagging))
	}
	if c.SourceRegion == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeySourceRegion))
	}
	if c.DestRegion == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDestRegion))
	}
	if c.SourceRegion != "" && c.SourceRegion == c.DestRegion {
		errs = append(errs, fmt.Errorf("%s must differ from %s", KeyDestRegion, KeySourceRegion))
	}
	if c.BootstrapRate < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyBootstrapRate))
	}
	return errors.Join(errs...)
}

// ValidateReplication checks the settings needed to write replication rules.
func (c Config) ValidateReplication() error {
	if c.ReplicationRole == "" {
		return fmt.Errorf("%s is required", KeyReplicationRole)
	}
	return nil
}

// ValidateNotify checks the hand-off settings.
func (c Config) ValidateNotify() error {
	return c.Notify.Validate()
}

// RuleTemplate returns the replication rule settings. role and kmsKeyARN
// are the resolved forms of ReplicationRole and ReplicaKMSKeyID.
func (c Config) RuleTemplate(role, kmsKeyARN string) dr.RuleTemplate {
	return dr.RuleTemplate{
		Role:             role,
		StorageClass:     c.StorageClass,
		ReplicaKMSKeyARN: kmsKeyARN,
	}
}
