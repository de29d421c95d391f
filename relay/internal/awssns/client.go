// Package awssns talks to the SNS API: confirming HTTP/S subscriptions for
// the relay endpoint and publishing findings for end-to-end tests.
package awssns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"

	"github.com/findingrelay/findingrelay/pkg/types"
)

// Client issues SNS calls in the region of whichever topic they target.
type Client struct {
	sess   *session.Session
	newAPI func(region string) snsiface.SNSAPI
}

// New creates a Client using the default credential chain (environment,
// shared config, instance or task role).
func New() (*Client, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	c := &Client{sess: sess}
	c.newAPI = func(region string) snsiface.SNSAPI {
		return sns.New(c.sess, aws.NewConfig().WithRegion(region))
	}
	return c, nil
}

// NewWithAPI returns a Client that sends every call through api.
func NewWithAPI(api snsiface.SNSAPI) *Client {
	return &Client{newAPI: func(string) snsiface.SNSAPI { return api }}
}

// Confirm confirms a pending subscription to topicARN and returns the
// subscription ARN.
func (c *Client) Confirm(ctx context.Context, topicARN, token string) (string, error) {
	region, err := RegionFromARN(topicARN)
	if err != nil {
		return "", err
	}
	out, err := c.newAPI(region).ConfirmSubscriptionWithContext(ctx, &sns.ConfirmSubscriptionInput{
		TopicArn: aws.String(topicARN),
		Token:    aws.String(token),
	})
	if err != nil {
		return "", fmt.Errorf("confirm subscription to %s: %w", topicARN, describe(err))
	}
	return aws.StringValue(out.SubscriptionArn), nil
}

// Publish sends f to topicARN as a JSON message and returns the message ID.
func (c *Client) Publish(ctx context.Context, topicARN string, f *types.Finding) (string, error) {
	region, err := RegionFromARN(topicARN)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode finding: %w", err)
	}
	in := &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(string(body)),
	}
	if f.Rule != nil && f.Rule.Name != "" {
		in.Subject = aws.String(subject(f.Rule.Name))
	}
	out, err := c.newAPI(region).PublishWithContext(ctx, in)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topicARN, describe(err))
	}
	return aws.StringValue(out.MessageId), nil
}

// RegionFromARN extracts the region from an SNS topic ARN.
func RegionFromARN(topicARN string) (string, error) {
	a, err := arn.Parse(topicARN)
	if err != nil {
		return "", fmt.Errorf("parse topic arn %q: %w", topicARN, err)
	}
	if a.Service != "sns" {
		return "", fmt.Errorf("arn %q is not an sns topic", topicARN)
	}
	if a.Region == "" {
		return "", fmt.Errorf("arn %q has no region", topicARN)
	}
	return a.Region, nil
}

// subject truncates s to the 100 characters SNS allows in a subject.
func subject(s string) string {
	r := []rune(s)
	if len(r) > 100 {
		r = r[:100]
	}
	return string(r)
}

// describe keeps the SNS error code visible in wrapped messages.
func describe(err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		return fmt.Errorf("%s: %s: %w", aerr.Code(), aerr.Message(), err)
	}
	return err
}
