package awssns

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"

	"github.com/findingrelay/findingrelay/pkg/types"
)

const topic = "arn:aws:sns:eu-west-1:111122223333:dome9-findings"

// fakeSNS implements the two SNS calls the client makes.
type fakeSNS struct {
	snsiface.SNSAPI

	confirm *sns.ConfirmSubscriptionInput
	publish *sns.PublishInput
	err     error
}

func (f *fakeSNS) ConfirmSubscriptionWithContext(_ aws.Context, in *sns.ConfirmSubscriptionInput, _ ...request.Option) (*sns.ConfirmSubscriptionOutput, error) {
	f.confirm = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.ConfirmSubscriptionOutput{SubscriptionArn: aws.String(topic + ":sub-1")}, nil
}

func (f *fakeSNS) PublishWithContext(_ aws.Context, in *sns.PublishInput, _ ...request.Option) (*sns.PublishOutput, error) {
	f.publish = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

func TestConfirm(t *testing.T) {
	fake := &fakeSNS{}
	var regions []string
	c := &Client{newAPI: func(region string) snsiface.SNSAPI {
		regions = append(regions, region)
		return fake
	}}

	sub, err := c.Confirm(context.Background(), topic, "tok-1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if sub != topic+":sub-1" {
		t.Errorf("subscription arn: got %q", sub)
	}
	if aws.StringValue(fake.confirm.Token) != "tok-1" || aws.StringValue(fake.confirm.TopicArn) != topic {
		t.Errorf("input: got %v", fake.confirm)
	}
	if len(regions) != 1 || regions[0] != "eu-west-1" {
		t.Errorf("regions: got %v, want [eu-west-1]", regions)
	}
}

func TestConfirm_AWSError(t *testing.T) {
	fake := &fakeSNS{err: awserr.New(sns.ErrCodeAuthorizationErrorException, "denied", nil)}

	_, err := NewWithAPI(fake).Confirm(context.Background(), topic, "tok")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), sns.ErrCodeAuthorizationErrorException) {
		t.Errorf("error %q does not carry the SNS code", err)
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		t.Errorf("error %q does not wrap awserr.Error", err)
	}
}

func TestPublish(t *testing.T) {
	fake := &fakeSNS{}
	f := &types.Finding{
		Rule:    &types.Rule{Name: strings.Repeat("x", 120), Severity: "High"},
		Entity:  &types.Entity{Type: "SecurityGroup", ID: "sg-1"},
		Account: &types.Account{ID: "111", Vendor: "AWS"},
	}

	id, err := NewWithAPI(fake).Publish(context.Background(), topic, f)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "msg-1" {
		t.Errorf("message id: got %q", id)
	}
	if n := len(aws.StringValue(fake.publish.Subject)); n != 100 {
		t.Errorf("subject length: got %d, want 100", n)
	}

	var got types.Finding
	if err := json.Unmarshal([]byte(aws.StringValue(fake.publish.Message)), &got); err != nil {
		t.Fatalf("decode published message: %v", err)
	}
	if got.Entity.ID != "sg-1" || got.Rule.Severity != "High" {
		t.Errorf("published finding: got %+v", got)
	}
}

func TestRegionFromARN(t *testing.T) {
	if r, err := RegionFromARN(topic); err != nil || r != "eu-west-1" {
		t.Errorf("RegionFromARN: got %q, %v", r, err)
	}
	for _, bad := range []string{
		"not-an-arn",
		"arn:aws:sqs:us-east-1:111122223333:queue",
		"arn:aws:sns::111122223333:topic",
	} {
		if _, err := RegionFromARN(bad); err == nil {
			t.Errorf("RegionFromARN(%q): expected error", bad)
		}
	}
}
