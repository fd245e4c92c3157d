package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"familyquest/internal/logger"
	"familyquest/internal/models"
)

// sesSender is the part of the SES client the service uses
type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends invitation emails via Amazon SES
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        *logger.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that accepts and drops every message.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, log *logger.Logger) (*EmailService, error) {
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, log: log}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", "region", awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, log), nil
}

func newEmailService(client sesSender, fromEmail, fromName, appBaseURL string, log *logger.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		enabled:    true,
		log:        log,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInvitationEmail tells the recipient about a new invitation code
func (s *EmailService) SendInvitationEmail(ctx context.Context, inv *models.Invitation, parentName string) error {
	if !s.enabled {
		s.log.Debug("skipping invitation email (service disabled)", "invitation_id", inv.ID)
		return nil
	}
	if inv.Email == "" {
		return nil
	}

	greeting := "Hi"
	if inv.ChildName != "" {
		greeting = "Hi " + inv.ChildName
	}
	inviter := parentName
	if inviter == "" {
		inviter = "Your parent"
	}
	expires := inv.ExpiresAt.UTC().Format("2 January 2006")
	joinLink := ""
	if s.appBaseURL != "" {
		joinLink = s.appBaseURL + "/join?code=" + url.QueryEscape(inv.Code)
	}

	subject := inviter + " invited you to FamilyQuest"

	var text strings.Builder
	fmt.Fprintf(&text, "%s,\n\n%s invited you to join their family on FamilyQuest.\n\n", greeting, inviter)
	fmt.Fprintf(&text, "Your invitation code: %s\n", inv.Code)
	if joinLink != "" {
		fmt.Fprintf(&text, "Join here: %s\n", joinLink)
	}
	fmt.Fprintf(&text, "\nThe code can be used once and expires on %s.\n", expires)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>%s,</p>\n", html.EscapeString(greeting))
	fmt.Fprintf(&body, "<p>%s invited you to join their family on FamilyQuest.</p>\n", html.EscapeString(inviter))
	fmt.Fprintf(&body, "<p style=\"font-size: 24px; font-weight: bold; letter-spacing: 2px;\">%s</p>\n", html.EscapeString(inv.Code))
	if joinLink != "" {
		fmt.Fprintf(&body, "<p><a href=\"%s\">Join the family</a></p>\n", html.EscapeString(joinLink))
	}
	fmt.Fprintf(&body, "<p>The code can be used once and expires on %s.</p>\n", html.EscapeString(expires))

	return s.sendEmail(ctx, inv.Email, subject, body.String(), text.String())
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
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
		return fmt.Errorf("failed to send email: %w", err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.log.Info("email sent", "subject", subject, "message_id", messageID)
	return nil
}
