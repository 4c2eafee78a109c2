// Package qrcode renders the delivery hand-off QR codes couriers present at
// the door.
package qrcode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"pulse/internal/domain/service"
)

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// HandoffData is the payload embedded in a hand-off QR code. The customer
// app scans it to confirm it received the right order.
type HandoffData struct {
	OrderID  string `json:"order_id"`
	Type     string `json:"type"`
	IssuedAt string `json:"issued_at"`
}

const handoffType = "handoff"

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GenerateHandoffQR renders a PNG QR code embedding the order hand-off payload.
func (s *qrcodeService) GenerateHandoffQR(orderID string) ([]byte, error) {
	data := HandoffData{
		OrderID:  orderID,
		Type:     handoffType,
		IssuedAt: time.Now().UTC().Format(time.RFC3339),
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal QR code data: %w", err)
	}

	qrCode, err := qrcode.New(string(jsonData), s.errorCorrectionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	return pngBytes, nil
}

// ParseHandoffQR parses scanned QR payload text and returns the order ID.
func ParseHandoffQR(qrData string) (string, error) {
	var data HandoffData
	if err := json.Unmarshal([]byte(qrData), &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal QR code data: %w", err)
	}

	if data.Type != handoffType {
		return "", fmt.Errorf("invalid QR code type: %s", data.Type)
	}
	if data.OrderID == "" {
		return "", fmt.Errorf("QR code missing order ID")
	}

	return data.OrderID, nil
}
