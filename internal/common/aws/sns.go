// internal/common/aws/sns.go
package aws

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// OpsAlerter publishes operator alerts to an SNS topic so silent
// hand-off and notification failures become pages instead of log lines.
type OpsAlerter struct {
	client   *sns.Client
	topicARN string
}

func NewOpsAlerter(ctx context.Context, region, topicARN string) (*OpsAlerter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &OpsAlerter{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// PublishAlert sends one alert. Callers route the returned error into
// logs, not into user responses.
func (a *OpsAlerter) PublishAlert(ctx context.Context, subject, message string) error {
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &a.topicARN,
		Subject:  &subject,
		Message:  &message,
	})
	return err
}
