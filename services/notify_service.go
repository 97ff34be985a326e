// services/notify_service.go
package services

import (
	"fmt"
	"os"
	"time"

	"estetica-voice-backend/models"
	"estetica-voice-backend/utils"

	"github.com/robfig/cron/v3"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier sends the booking confirmation promised to the caller during the
// call. Sends are best effort; a failed SMS never fails the booking.
type Notifier interface {
	SendBookingConfirmation(appointment *models.Appointment, product *models.Product)
}

// NotifyService sends confirmation and reminder SMS via Twilio and runs the
// background housekeeping jobs.
type NotifyService struct {
	db     *gorm.DB
	client *twilio.RestClient
	from   string
	logger *zap.Logger
}

func NewNotifyService(db *gorm.DB) *NotifyService {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	var client *twilio.RestClient
	if accountSid != "" && authToken != "" {
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		})
	}

	return &NotifyService{
		db:     db,
		client: client,
		from:   os.Getenv("TWILIO_PHONE_NUMBER"),
		logger: utils.GetLogger(),
	}
}

// StartScheduler registers the daily reminder run and the hourly sweep of
// abandoned call sessions.
func (s *NotifyService) StartScheduler() {
	c := cron.New()

	// Day-before reminders at 9 AM
	c.AddFunc("0 9 * * *", s.SendDailyReminders)

	// Calls that hung up without a status callback leave sessions behind
	c.AddFunc("@hourly", s.CleanupStaleSessions)

	c.Start()
	s.logger.Info("notification scheduler started")
}

func (s *NotifyService) SendBookingConfirmation(appointment *models.Appointment, product *models.Product) {
	message := fmt.Sprintf(
		"Contemporánea Estética: su cita de %s está confirmada para el %s a las %s. ¡Le esperamos!",
		product.Name,
		appointment.StartsAt.Format("02/01/2006"),
		appointment.StartsAt.Format("15:04"),
	)
	s.send(appointment.CustomerPhone, message)
}

// SendDailyReminders messages every customer with a scheduled appointment
// tomorrow.
func (s *NotifyService) SendDailyReminders() {
	tomorrow := utils.BeginningOfDay(time.Now()).AddDate(0, 0, 1)

	var appointments []models.Appointment
	err := s.db.Preload("Product").
		Where("status = ? AND starts_at >= ? AND starts_at < ?",
			models.AppointmentScheduled, tomorrow, tomorrow.AddDate(0, 0, 1)).
		Find(&appointments).Error
	if err != nil {
		s.logger.Error("failed to fetch tomorrow's appointments", zap.Error(err))
		return
	}

	for _, a := range appointments {
		message := fmt.Sprintf(
			"Recordatorio: mañana a las %s tiene su cita de %s en Contemporánea Estética.",
			a.StartsAt.Format("15:04"),
			a.Product.Name,
		)
		s.send(a.CustomerPhone, message)
	}

	s.logger.Info("daily reminders processed", zap.Int("count", len(appointments)))
}

// CleanupStaleSessions deletes call sessions untouched for over an hour.
func (s *NotifyService) CleanupStaleSessions() {
	cutoff := time.Now().Add(-time.Hour)
	result := s.db.Where("updated_at < ?", cutoff).Delete(&models.CallSession{})
	if result.Error != nil {
		s.logger.Error("failed to clean up stale sessions", zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info("stale sessions removed", zap.Int64("count", result.RowsAffected))
	}
}

func (s *NotifyService) send(to, message string) {
	if s.client == nil || !utils.ValidatePhone(to) {
		s.logger.Debug("sms skipped", zap.String("to", to))
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		s.logger.Warn("failed to send sms", zap.String("to", to), zap.Error(err))
		return
	}
	if resp.Sid != nil {
		s.logger.Info("sms sent", zap.String("to", to), zap.String("sid", *resp.Sid))
	}
}
