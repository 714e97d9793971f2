package publishers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jugend/amazon-ecs/pkg/validation"
)

func writePublishers(t *testing.T, name, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadConfigsEnabledFilter(t *testing.T) {
	path := writePublishers(t, "publishers.yaml", `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("LoadConfigs() = %d entries", len(cfgs))
	}
	enabled := Enabled(cfgs)
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestLoadConfigsAllTypes(t *testing.T) {
	path := writePublishers(t, "publishers.yaml", `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/123/items "
      region: us-east-1
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:items
      region: us-east-1
      access_key_id: AKID
      secret_access_key: secret
      endpoint: http://localhost:4566
  - id: pubsub
    type: gcp_pubsub
    gcp_pubsub:
      project_id: catalog
      topic: items
  - id: hook
    type: http
    http:
      url: https://example.com/hook
      method: put
      headers:
        X-Empty: " "
`)

	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if len(cfgs) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(cfgs))
	}

	queue := cfgs[0]
	if queue.Type != TypeSQS || queue.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/123/items" || queue.SQS.Region != "us-east-1" {
		t.Fatalf("unexpected sqs config %#v", queue.SQS)
	}
	if topic := cfgs[1].SNS; topic.AccessKeyID != "AKID" || topic.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sns config %#v", topic)
	}
	if pubsub := cfgs[2].GCPPubSub; pubsub.ProjectID != "catalog" || pubsub.Topic != "items" {
		t.Fatalf("unexpected pubsub config %#v", pubsub)
	}
	hook := cfgs[3].HTTP
	if hook.Method != "PUT" || len(hook.Headers) != 0 || hook.Timeout() != defaultHTTPTimeout {
		t.Fatalf("http config not normalized %#v", hook)
	}
}

func TestLoadConfigsJSON(t *testing.T) {
	path := writePublishers(t, "publishers.json", `{"publishers":[{"id":"topic","type":"sns","sns":{"topic_arn":"arn","region":"eu-west-1"}}]}`)
	cfgs, err := LoadConfigs(path)
	if err != nil {
		t.Fatalf("LoadConfigs: %v", err)
	}
	if cfgs[0].SNS.Region != "eu-west-1" {
		t.Fatalf("unexpected config %#v", cfgs[0])
	}
}

func TestLoadConfigsRejectsDuplicates(t *testing.T) {
	path := writePublishers(t, "publishers.yaml", `
publishers:
  - id: dup
    type: http
    http: {url: "https://a.example"}
  - id: dup
    type: http
    http: {url: "https://b.example"}
`)
	if _, err := LoadConfigs(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]Config{
		"missing http":     {ID: "h1", Type: TypeHTTP},
		"bad http url":     {ID: "h1", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "not a url"}},
		"bad http method":  {ID: "h1", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://a.example", Method: "delete"}},
		"missing sqs uri":  {ID: "q", Type: TypeSQS, SQS: &SQSConfig{AWSAuth: AWSAuth{Region: "us-east-1"}}},
		"missing region":   {ID: "q", Type: TypeSQS, SQS: &SQSConfig{QueueURL: "u"}},
		"half credentials": {ID: "t", Type: TypeSNS, SNS: &SNSConfig{TopicARN: "arn", AWSAuth: AWSAuth{Region: "r", AccessKeyID: "AKID"}}},
		"missing topic":    {ID: "g", Type: TypeGCPPubSub, GCPPubSub: &GCPPubSubConfig{ProjectID: "p"}},
		"unknown type":     {ID: "k", Type: "kafka"},
		"missing id":       {Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://a.example"}},
	}
	for name, cfg := range cases {
		if err := cfg.normalize().validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestConfigValidateNamesFields(t *testing.T) {
	cfg := Config{ID: "t", Type: TypeSNS, SNS: &SNSConfig{TopicARN: "arn", AWSAuth: AWSAuth{Region: "r", AccessKeyID: "AKID"}}}
	err := cfg.normalize().validate()

	var fields validation.FieldErrors
	if !errors.As(err, &fields) || len(fields) != 1 || fields[0].Field != "sns.secret_access_key" {
		t.Fatalf("unexpected error %v", err)
	}
}
