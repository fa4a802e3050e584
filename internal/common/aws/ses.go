// internal/common/aws/ses.go
package aws

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// StaffMailer sends decision summaries to the staff distribution list.
type StaffMailer struct {
	client    *ses.Client
	fromEmail string
	staffList []string
}

func NewStaffMailer(ctx context.Context, region, fromEmail string, staffList []string) (*StaffMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &StaffMailer{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		staffList: staffList,
	}, nil
}

// SendDecisionMail delivers one plain-text summary to every configured
// staff address.
func (m *StaffMailer) SendDecisionMail(ctx context.Context, subject, body string) error {
	if len(m.staffList) == 0 {
		return nil
	}

	input := &ses.SendEmailInput{
		Source: &m.fromEmail,
		Destination: &types.Destination{
			ToAddresses: m.staffList,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
	}

	_, err := m.client.SendEmail(ctx, input)
	return err
}
