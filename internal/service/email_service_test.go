package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytasks/internal/logger"
	"familytasks/internal/models"
)

type fakeSES struct {
	sent []*sesv2.SendEmailInput
	fail map[string]bool
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.fail[in.Destination.ToAddresses[0]] {
		return nil, errors.New("ses unavailable")
	}
	f.sent = append(f.sent, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNotifyTaskAdded(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailServiceWithClient(ses, "noreply@example.com", "Family Tasks", "https://tasks.example.com", false, logger.Discard())

	fee := 4.0
	family := &models.Family{ID: "f1", Surname: "Smith"}
	task := &models.Task{ID: "t1", Name: "Walk <the> dog", Status: models.StatusPending, Fee: &fee}
	recipients := []models.User{{Email: "bob@example.com", DisplayName: "Bob"}, {Email: "carol@example.com", DisplayName: "Carol"}}

	require.NoError(t, svc.NotifyTaskAdded(context.Background(), family, task, recipients))
	require.Len(t, ses.sent, 2)

	first := ses.sent[0]
	assert.Equal(t, "Family Tasks <noreply@example.com>", *first.FromEmailAddress)
	assert.Equal(t, []string{"bob@example.com"}, first.Destination.ToAddresses)
	assert.Contains(t, *first.Content.Simple.Subject.Data, "Walk <the> dog")
	assert.Contains(t, *first.Content.Simple.Body.Text.Data, "Fee: 4.00")
	assert.Contains(t, *first.Content.Simple.Body.Html.Data, "Walk &lt;the&gt; dog")
}

func TestNotifyTaskAddedReportsFailures(t *testing.T) {
	ses := &fakeSES{fail: map[string]bool{"bob@example.com": true}}
	svc := newEmailServiceWithClient(ses, "noreply@example.com", "", "https://tasks.example.com", false, logger.Discard())

	err := svc.NotifyTaskAdded(context.Background(), &models.Family{Surname: "Smith"}, &models.Task{Name: "Dishes"},
		[]models.User{{Email: "bob@example.com"}, {Email: "carol@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bob@example.com")
	assert.Len(t, ses.sent, 1, "other recipients still receive mail")
}

func TestDisabledEmailServiceSendsNothing(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "", "", true, logger.Discard())
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.NotifyTaskAdded(context.Background(), &models.Family{Surname: "Smith"}, &models.Task{Name: "Dishes"},
		[]models.User{{Email: "bob@example.com"}}))
}
