/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. Every field of Config binds to one; a YAML
// file can pre-fill values and the environment always wins.
const (
	EnvRegion          = "AWS_REGION"
	EnvEndpointURL     = "PRESSBOX_ENDPOINT_URL"
	EnvTableName       = "PRESSBOX_TABLE_NAME"
	EnvMediaBucket     = "PRESSBOX_MEDIA_BUCKET"
	EnvCDNBaseURL      = "PRESSBOX_CDN_BASE_URL"
	EnvDistributionID  = "PRESSBOX_DISTRIBUTION_ID"
	EnvQueueURL        = "PRESSBOX_QUEUE_URL"
	EnvTopicARN        = "PRESSBOX_TOPIC_ARN"
	EnvEventBusName    = "PRESSBOX_EVENT_BUS"
	EnvScheduleGroup   = "PRESSBOX_SCHEDULE_GROUP"
	EnvScheduleRoleARN = "PRESSBOX_SCHEDULE_ROLE_ARN"
	EnvScheduleTarget  = "PRESSBOX_SCHEDULE_TARGET_ARN"
	EnvSenderAddress   = "PRESSBOX_SENDER_ADDRESS"
	EnvSiteBaseURL     = "PRESSBOX_SITE_BASE_URL"
	EnvStateMachineARN = "PRESSBOX_STATE_MACHINE_ARN"
	EnvUserPoolID      = "PRESSBOX_USER_POOL_ID"
	EnvDevtoAPIKey     = "PRESSBOX_DEVTO_API_KEY"
)

// Config carries every deployment-specific value the engine needs. Lambda
// handlers read it straight from the environment; the CLI can overlay a
// YAML file first.
type Config struct {
	Region      string `yaml:"region"`
	EndpointURL string `yaml:"endpoint_url"`

	TableName   string `yaml:"table_name"`
	MediaBucket string `yaml:"media_bucket"`

	CDNBaseURL     string `yaml:"cdn_base_url"`
	DistributionID string `yaml:"distribution_id"`

	QueueURL     string `yaml:"queue_url"`
	TopicARN     string `yaml:"topic_arn"`
	EventBusName string `yaml:"event_bus"`

	ScheduleGroup     string `yaml:"schedule_group"`
	ScheduleRoleARN   string `yaml:"schedule_role_arn"`
	ScheduleTargetARN string `yaml:"schedule_target_arn"`

	SenderAddress string `yaml:"sender_address"`
	SiteBaseURL   string `yaml:"site_base_url"`

	StateMachineARN string `yaml:"state_machine_arn"`
	UserPoolID      string `yaml:"user_pool_id"`

	// DevtoAPIKey is a secret; it never lives in YAML files.
	DevtoAPIKey string `yaml:"-"`
}

// envField maps each environment variable to its Config field. One table
// drives both the env overlay and Require's reporting.
var envField = map[string]func(*Config) *string{
	EnvRegion:          func(c *Config) *string { return &c.Region },
	EnvEndpointURL:     func(c *Config) *string { return &c.EndpointURL },
	EnvTableName:       func(c *Config) *string { return &c.TableName },
	EnvMediaBucket:     func(c *Config) *string { return &c.MediaBucket },
	EnvCDNBaseURL:      func(c *Config) *string { return &c.CDNBaseURL },
	EnvDistributionID:  func(c *Config) *string { return &c.DistributionID },
	EnvQueueURL:        func(c *Config) *string { return &c.QueueURL },
	EnvTopicARN:        func(c *Config) *string { return &c.TopicARN },
	EnvEventBusName:    func(c *Config) *string { return &c.EventBusName },
	EnvScheduleGroup:   func(c *Config) *string { return &c.ScheduleGroup },
	EnvScheduleRoleARN: func(c *Config) *string { return &c.ScheduleRoleARN },
	EnvScheduleTarget:  func(c *Config) *string { return &c.ScheduleTargetARN },
	EnvSenderAddress:   func(c *Config) *string { return &c.SenderAddress },
	EnvSiteBaseURL:     func(c *Config) *string { return &c.SiteBaseURL },
	EnvStateMachineARN: func(c *Config) *string { return &c.StateMachineARN },
	EnvUserPoolID:      func(c *Config) *string { return &c.UserPoolID },
	EnvDevtoAPIKey:     func(c *Config) *string { return &c.DevtoAPIKey },
}

// Load builds the configuration. A .env file in the working directory is
// applied to the process environment first (ignored when absent), then the
// optional YAML file at path, then environment variables on top.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv builds the configuration from the environment alone. Lambda
// handlers use this; their environment is the deployment.
func FromEnv() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	for env, field := range envField {
		if v := os.Getenv(env); v != "" {
			*field(c) = v
		}
	}
}

// Require checks that the named environment bindings resolved to non-empty
// values and reports every missing one in a single error, sorted, so a
// misconfigured deployment fails with the complete list.
func (c *Config) Require(envs ...string) error {
	var missing []string
	for _, env := range envs {
		field, ok := envField[env]
		if !ok {
			return fmt.Errorf("unknown configuration key %q", env)
		}
		if *field(c) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
}
