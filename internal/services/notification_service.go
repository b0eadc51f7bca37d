package services

import (
	"context"
	"time"

	"busfleet/internal/models"
	"busfleet/internal/repositories/interfaces"
	"busfleet/internal/utils"
	"busfleet/pkg/logger"
	"busfleet/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier delivers swap lifecycle events to drivers. Delivery is best
// effort: every failure is logged and swallowed, never surfaced to the
// operation that triggered the notification.
type Notifier interface {
	NotifyDriver(ctx context.Context, driverID primitive.ObjectID, notificationType models.NotificationType, title, message string, data map[string]string)
}

// NotificationService is the Notifier plus the read side exposed over HTTP.
type NotificationService interface {
	Notifier
	GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
}

type notificationService struct {
	notificationRepo interfaces.NotificationRepository
	driverRepo       interfaces.DriverRepository
	fcmProvider      push.Provider
	apnsProvider     push.Provider
	logger           *logger.Logger
	pushTimeout      time.Duration
}

func NewNotificationService(
	notificationRepo interfaces.NotificationRepository,
	driverRepo interfaces.DriverRepository,
	fcmProvider push.Provider,
	apnsProvider push.Provider,
	log *logger.Logger,
	pushTimeout time.Duration,
) NotificationService {
	if pushTimeout <= 0 {
		pushTimeout = utils.NotificationTimeout
	}
	return &notificationService{
		notificationRepo: notificationRepo,
		driverRepo:       driverRepo,
		fcmProvider:      fcmProvider,
		apnsProvider:     apnsProvider,
		logger:           log,
		pushTimeout:      pushTimeout,
	}
}

func (s *notificationService) NotifyDriver(ctx context.Context, driverID primitive.ObjectID, notificationType models.NotificationType, title, message string, data map[string]string) {
	now := time.Now()
	notification := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    driverID,
		Type:      notificationType,
		Status:    models.NotificationStatusUnread,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.WithError(err).WithDriverID(driverID).Error("Failed to persist notification")
		return
	}

	go s.deliver(notification)
}

// deliver pushes the notification to every registered device token. It runs
// detached from the request with its own deadline.
func (s *notificationService) deliver(notification *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
	defer cancel()

	log := s.logger.WithDriverID(notification.UserID).WithField("notification_type", string(notification.Type))

	driver, err := s.driverRepo.GetByID(ctx, notification.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to load driver for push delivery")
		s.markFailed(ctx, notification.ID)
		return
	}

	if len(driver.DeviceTokens) == 0 {
		return
	}

	delivered := false
	for _, token := range driver.DeviceTokens {
		var provider push.Provider
		switch token.Platform {
		case "ios":
			provider = s.apnsProvider
		default:
			provider = s.fcmProvider
		}
		if provider == nil {
			continue
		}

		request := &push.NotificationRequest{
			Token:    token.Token,
			Title:    notification.Title,
			Body:     notification.Message,
			Data:     notification.Data,
			Sound:    "default",
			Priority: "high",
		}

		if _, err := provider.SendNotification(ctx, request); err != nil {
			log.WithError(err).WithField("platform", token.Platform).Warn("Push delivery failed")
			continue
		}
		delivered = true
	}

	if delivered {
		if err := s.notificationRepo.MarkSent(ctx, notification.ID); err != nil {
			log.WithError(err).Warn("Failed to mark notification sent")
		}
	} else {
		s.markFailed(ctx, notification.ID)
	}
}

func (s *notificationService) markFailed(ctx context.Context, id primitive.ObjectID) {
	if err := s.notificationRepo.MarkFailed(ctx, id); err != nil {
		s.logger.WithError(err).Warn("Failed to mark notification failed")
	}
}

func (s *notificationService) GetByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return s.notificationRepo.GetByUser(ctx, userID, params)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
