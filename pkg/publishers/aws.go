package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// sendFunc delivers one JSON body with string attributes and returns the
// service's message id.
type sendFunc func(ctx context.Context, body string, attrs map[string]string) (string, error)

// awsPublisher is the SQS and SNS sink. Only the send step differs.
type awsPublisher struct {
	id   string
	typ  string
	send sendFunc
	log  Logger
}

func newSQSPublisher(ctx context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.AWSAuth)
	if err != nil {
		return nil, err
	}
	return &awsPublisher{
		id:   cfg.ID,
		typ:  TypeSQS,
		send: sqsSend(sqs.NewFromConfig(awsCfg), cfg.SQS.QueueURL),
		log:  ensureLogger(log),
	}, nil
}

func newSNSPublisher(ctx context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.AWSAuth)
	if err != nil {
		return nil, err
	}
	return &awsPublisher{
		id:   cfg.ID,
		typ:  TypeSNS,
		send: snsSend(sns.NewFromConfig(awsCfg), cfg.SNS.TopicARN),
		log:  ensureLogger(log),
	}, nil
}

// loadAWSConfig resolves the SDK config for a sink. Static keys, when
// present, replace the default credential chain.
func loadAWSConfig(ctx context.Context, auth AWSAuth) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(auth.Region)}
	if auth.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(auth.AccessKeyID, auth.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if auth.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(auth.Endpoint)
	}
	return cfg, nil
}

func sqsSend(client sqsAPI, queueURL string) sendFunc {
	return func(ctx context.Context, body string, attrs map[string]string) (string, error) {
		in := &sqs.SendMessageInput{
			QueueUrl:          aws.String(queueURL),
			MessageBody:       aws.String(body),
			MessageAttributes: make(map[string]sqstypes.MessageAttributeValue, len(attrs)),
		}
		for k, v := range attrs {
			in.MessageAttributes[k] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
		out, err := client.SendMessage(ctx, in)
		if err != nil {
			return "", fmt.Errorf("send message to sqs: %w", err)
		}
		return aws.ToString(out.MessageId), nil
	}
}

func snsSend(client snsAPI, topicARN string) sendFunc {
	return func(ctx context.Context, body string, attrs map[string]string) (string, error) {
		in := &sns.PublishInput{
			TopicArn:          aws.String(topicARN),
			Message:           aws.String(body),
			MessageAttributes: make(map[string]snstypes.MessageAttributeValue, len(attrs)),
		}
		for k, v := range attrs {
			in.MessageAttributes[k] = snstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
		}
		out, err := client.Publish(ctx, in)
		if err != nil {
			return "", fmt.Errorf("publish to sns: %w", err)
		}
		return aws.ToString(out.MessageId), nil
	}
}

func (p *awsPublisher) ID() string   { return p.id }
func (p *awsPublisher) Type() string { return p.typ }

func (p *awsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msgID, err := p.send(ctx, string(payload), evt.attributes())
	if err != nil {
		p.log.ErrorObj(p.typ+" publisher send failed", "publisher_error", map[string]any{
			"publisher_id": p.id,
			"asin":         evt.Item.ASIN,
			"error":        err.Error(),
		})
		return err
	}
	p.log.DebugObj(p.typ+" publisher delivered event", "publisher_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"message_id":   msgID,
	})
	return nil
}
