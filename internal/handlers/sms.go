package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rkechols/bulk-sms/internal/models"
	"github.com/rkechols/bulk-sms/internal/recipients"
	"github.com/rkechols/bulk-sms/internal/sender"
	"github.com/rkechols/bulk-sms/internal/services"
)

type SMSHandler struct {
	svc services.SMSServiceInterface
}

func NewSMSHandler(svc services.SMSServiceInterface) *SMSHandler {
	return &SMSHandler{svc: svc}
}

// SendSMS fans the message out to every recipient in the request. Responds
// 200 when everything went through, 207 on a partial failure and 502 when
// no recipient could be reached; the body always carries every outcome.
func (h *SMSHandler) SendSMS(c *gin.Context) {
	var req models.BulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if (len(req.Groups) == 0) == (len(req.Numbers) == 0) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: "provide either groups or numbers, not both and not neither",
			Code:    http.StatusBadRequest,
		})
		return
	}

	groupMap := req.Groups
	if len(req.Numbers) > 0 {
		groupMap = map[string][]string{"recipients": req.Numbers}
	}

	groups, err := recipients.FromMap(groupMap)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid recipients",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	results := sender.Run(c.Request.Context(), h.svc, groups, req.Message)
	sent, failed := sender.Summarize(results)

	response := models.BulkSendResponse{
		Sent:    sent,
		Failed:  failed,
		Results: make([]models.SendOutcome, 0, len(results)),
	}
	for _, result := range results {
		outcome := models.SendOutcome{
			Group:     result.Group,
			Number:    result.Number,
			MessageID: result.MessageID,
		}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
		response.Results = append(response.Results, outcome)
	}

	status := http.StatusOK
	switch {
	case failed > 0 && sent == 0:
		status = http.StatusBadGateway
	case failed > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, response)
}

// ListDevices proxies the account's active devices so callers can find the
// iden of the phone that sends the texts.
func (h *SMSHandler) ListDevices(c *gin.Context) {
	devices, err := h.svc.ListDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "upstream error",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// ExampleRecipients serves the canonical recipients file for onboarding.
func (h *SMSHandler) ExampleRecipients(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(recipients.ExampleJSON()))
}
