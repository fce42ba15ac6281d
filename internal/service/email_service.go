package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	"familytasks/internal/models"
)

// sesAPI is the part of the SES client we use
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	log        *logrus.Entry
}

// NewEmailService creates a new email service. An empty fromEmail
// yields a disabled service that only logs.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool, log *logrus.Entry) (*EmailService, error) {
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.WithFields(logrus.Fields{"from": fromEmail, "region": awsRegion}).Info("email service enabled")
	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug, log), nil
}

func newEmailServiceWithClient(client sesAPI, fromEmail, fromName, appBaseURL string, debug bool, log *logrus.Entry) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// NotifyTaskAdded tells each recipient that a task was added to their family
func (s *EmailService) NotifyTaskAdded(ctx context.Context, family *models.Family, task *models.Task, recipients []models.User) error {
	subject := fmt.Sprintf("New task for the %s family: %s", family.Surname, task.Name)

	var failed []string
	for _, r := range recipients {
		textBody, htmlBody := s.taskAddedBodies(r.DisplayName, family, task)
		if err := s.sendEmail(ctx, r.Email, subject, htmlBody, textBody); err != nil {
			s.log.WithError(err).WithField("to", r.Email).Warn("task notification not sent")
			failed = append(failed, r.Email)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to notify %s", strings.Join(failed, ", "))
	}
	return nil
}

func (s *EmailService) taskAddedBodies(name string, family *models.Family, task *models.Task) (text, htmlBody string) {
	var details strings.Builder
	fmt.Fprintf(&details, "Task: %s\nStatus: %s\n", task.Name, task.Status)
	if task.Description != "" {
		fmt.Fprintf(&details, "Description: %s\n", task.Description)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&details, "Due: %s\n", task.DueDate.Format("2006-01-02"))
	}
	if task.Fee != nil {
		fmt.Fprintf(&details, "Fee: %.2f\n", *task.Fee)
	}

	text = fmt.Sprintf(`Hi %s,

A new task was added to the %s family list.

%s
View your tasks: %s/tasks

---
You receive this because email notifications are on for your family.
`, name, family.Surname, details.String(), s.appBaseURL)

	htmlBody = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi %s,</p>
	<p>A new task was added to the %s family list.</p>
	<pre style="background-color: #f9f9f9; padding: 12px;">%s</pre>
	<p><a href="%s/tasks">View your tasks</a></p>
	<p style="font-size: 12px; color: #666;">You receive this because email notifications are on for your family.</p>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(family.Surname), html.EscapeString(details.String()), s.appBaseURL)
	return text, htmlBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	log := s.log.WithFields(logrus.Fields{"to": toEmail, "subject": subject})
	if !s.enabled {
		if s.debug {
			log.WithField("body", textBody).Info("email service disabled, not sending")
		}
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log = log.WithField("message_id", *result.MessageId)
	}
	log.Info("email sent")
	return nil
}
