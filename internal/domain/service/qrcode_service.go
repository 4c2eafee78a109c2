package service

// QRCodeService generates the hand-off QR code a courier presents at the
// door so the customer app can confirm the delivery.
type QRCodeService interface {
	// GenerateHandoffQR renders a PNG QR code embedding the order hand-off payload.
	GenerateHandoffQR(orderID string) ([]byte, error)
}
