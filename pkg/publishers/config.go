package publishers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jugend/amazon-ecs/pkg/cfgfile"
	"github.com/jugend/amazon-ecs/pkg/validation"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeHTTP      = "http"
	TypeGCPPubSub = "gcp_pubsub"
)

const (
	defaultHTTPMethod  = http.MethodPost
	defaultHTTPTimeout = 5 * time.Second
)

// Config is one publisher entry of the publishers file. Exactly the block
// named by Type is read.
type Config struct {
	ID        string           `json:"id" yaml:"id" validate:"required"`
	Type      string           `json:"type" yaml:"type" validate:"oneof=sqs sns http gcp_pubsub"`
	Enabled   *bool            `json:"enabled" yaml:"enabled"`
	SQS       *SQSConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSConfig       `json:"sns" yaml:"sns"`
	HTTP      *HTTPConfig      `json:"http" yaml:"http"`
	GCPPubSub *GCPPubSubConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// AWSAuth selects the region and optionally pins static credentials and a
// custom endpoint such as localstack. Without keys the default credential
// chain applies.
type AWSAuth struct {
	Region          string `json:"region" yaml:"region" validate:"required"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
}

type SQSConfig struct {
	QueueURL string `json:"uri" yaml:"uri" validate:"required"`
	AWSAuth  `yaml:",inline"`
}

type SNSConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn" validate:"required"`
	AWSAuth  `yaml:",inline"`
}

type GCPPubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id" validate:"required"`
	Topic           string `json:"topic" yaml:"topic" validate:"required"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPConfig describes a webhook that receives each event as a JSON body.
type HTTPConfig struct {
	URL            string            `json:"url" yaml:"url" validate:"required,url"`
	Method         string            `json:"method" yaml:"method" validate:"omitempty,oneof=POST PUT PATCH"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

// Timeout is the per-request timeout, five seconds unless configured.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return defaultHTTPTimeout
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// IsEnabled reports whether the entry should be built. Entries are enabled
// unless switched off.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type configFile struct {
	Publishers []Config `json:"publishers" yaml:"publishers"`
}

// LoadConfigs reads and validates every entry of a YAML or JSON publishers
// file, disabled ones included.
func LoadConfigs(path string) ([]Config, error) {
	var file configFile
	if err := cfgfile.Decode("publishers", path, &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	ids := make(map[string]struct{}, len(file.Publishers))
	out := make([]Config, 0, len(file.Publishers))
	for i, raw := range file.Publishers {
		cfg := raw.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := ids[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		ids[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// Enabled filters cfgs down to the enabled entries.
func Enabled(cfgs []Config) []Config {
	var out []Config
	for _, c := range cfgs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

func (c Config) normalize() Config {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))

	if c.SQS != nil {
		q := *c.SQS
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.AWSAuth = q.AWSAuth.normalize()
		c.SQS = &q
	}
	if c.SNS != nil {
		s := *c.SNS
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.AWSAuth = s.AWSAuth.normalize()
		c.SNS = &s
	}
	if c.GCPPubSub != nil {
		g := *c.GCPPubSub
		g.ProjectID = strings.TrimSpace(g.ProjectID)
		g.Topic = strings.TrimSpace(g.Topic)
		g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
		c.GCPPubSub = &g
	}
	if c.HTTP != nil {
		h := *c.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = defaultHTTPMethod
		}
		headers := make(map[string]string, len(h.Headers))
		for k, v := range h.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		h.Headers = headers
		c.HTTP = &h
	}
	return c
}

func (a AWSAuth) normalize() AWSAuth {
	a.Region = strings.TrimSpace(a.Region)
	a.AccessKeyID = strings.TrimSpace(a.AccessKeyID)
	a.SecretAccessKey = strings.TrimSpace(a.SecretAccessKey)
	a.Endpoint = strings.TrimSpace(a.Endpoint)
	return a
}

func (c Config) validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	missing := map[string]bool{
		TypeSQS:       c.SQS == nil,
		TypeSNS:       c.SNS == nil,
		TypeHTTP:      c.HTTP == nil,
		TypeGCPPubSub: c.GCPPubSub == nil,
	}
	if missing[c.Type] {
		return fmt.Errorf("publisher %q: %s block is required", c.ID, c.Type)
	}
	return nil
}
