package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"inkporto/signing-portal/signing-portal-backend/internal/notifications/websocket"
)

// EmailAPI is the subset of the SES v2 client used by the email channel.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// BroadcastAPI is the subset of the SNS client used for topic fan-out.
type BroadcastAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Service delivers notifications over email, an optional SNS broadcast topic
// and in-app websocket push, recording every attempt.
type Service struct {
	db        *gorm.DB
	ws        *websocket.Manager
	email     EmailAPI
	broadcast BroadcastAPI
	sender    string
	topicARN  string
	logger    *zap.Logger
}

func NewService(db *gorm.DB, ws *websocket.Manager, email EmailAPI, broadcast BroadcastAPI, sender, topicARN string, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&Notification{}, &UserContact{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification tables: %w", err)
	}
	return &Service{
		db:        db,
		ws:        ws,
		email:     email,
		broadcast: broadcast,
		sender:    sender,
		topicARN:  topicARN,
		logger:    logger,
	}, nil
}

// Notify fans a notification out to the given users. Failures against a
// single user do not abort delivery to the rest; the first error is returned
// after all deliveries were attempted.
func (s *Service) Notify(ctx context.Context, userIDs []uuid.UUID, title, body, templateID string) error {
	var firstErr error

	for _, userID := range userIDs {
		notification := &Notification{
			ID:         uuid.New(),
			UserID:     userID,
			Title:      title,
			Body:       body,
			TemplateID: templateID,
			Status:     StatusPending,
		}
		if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to record notification: %w", err)
			}
			continue
		}

		err := s.deliver(ctx, userID, title, body)
		now := time.Now()
		if err != nil {
			notification.Status = StatusFailed
			s.logger.Warn("notification delivery failed",
				zap.String("user_id", userID.String()),
				zap.String("template_id", templateID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		} else {
			notification.Status = StatusSent
			notification.SentAt = &now
		}
		s.db.WithContext(ctx).Save(notification)
	}

	if s.topicARN != "" && s.broadcast != nil {
		if _, err := s.broadcast.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(s.topicARN),
			Subject:  aws.String(title),
			Message:  aws.String(body),
		}); err != nil {
			s.logger.Warn("broadcast publish failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *Service) deliver(ctx context.Context, userID uuid.UUID, title, body string) error {
	// In-app push first; it never blocks on the user being offline.
	s.ws.SendToUser(userID.String(), websocket.Message{
		Type:      "notification",
		Title:     title,
		Body:      body,
		Timestamp: time.Now(),
	})

	var contact UserContact
	err := s.db.WithContext(ctx).First(&contact, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No email on file; in-app push is the only channel.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load contact for %s: %w", userID, err)
	}

	_, err = s.email.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender),
		Destination:      &sestypes.Destination{ToAddresses: []string{contact.Email}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(title)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", userID, err)
	}
	return nil
}

// ListForUser returns a user's recent notifications.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
