package utils

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// UPIPayment describes a collect-style UPI deep link.
type UPIPayment struct {
	PayeeVPA  string
	PayeeName string
	Amount    float64
	Reference string
	Note      string
}

// Link renders the payment as a upi://pay URI understood by UPI apps.
func (p UPIPayment) Link() string {
	q := url.Values{}
	q.Set("pa", p.PayeeVPA)
	q.Set("pn", p.PayeeName)
	q.Set("am", fmt.Sprintf("%.2f", p.Amount))
	q.Set("cu", "INR")
	if p.Reference != "" {
		q.Set("tr", p.Reference)
	}
	if p.Note != "" {
		q.Set("tn", p.Note)
	}
	return "upi://pay?" + q.Encode()
}

// QRCode encodes the deep link as a PNG of size pixels.
func (p UPIPayment) QRCode(size int) ([]byte, error) {
	png, err := qrcode.Encode(p.Link(), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode upi qr: %w", err)
	}
	return png, nil
}
