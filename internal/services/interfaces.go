package services

import (
	"context"

	"github.com/rkechols/bulk-sms/internal/models"
)

type SMSServiceInterface interface {
	SendSMS(ctx context.Context, phoneNumbers []string, message string) (string, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
}
