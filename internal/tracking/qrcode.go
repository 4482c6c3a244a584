package tracking

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// QRGenerator renders the tracking link of an order as a PNG.
type QRGenerator struct {
	BaseURL string
	Size    int
}

func NewQRGenerator(baseURL string) QRGenerator {
	return QRGenerator{BaseURL: strings.TrimRight(baseURL, "/"), Size: defaultSize}
}

func (g QRGenerator) TrackingURL(orderNumber string) string {
	return fmt.Sprintf("%s/orders/%s", g.BaseURL, orderNumber)
}

func (g QRGenerator) Generate(orderNumber string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = defaultSize
	}
	png, err := qrcode.Encode(g.TrackingURL(orderNumber), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode tracking qr for %s: %w", orderNumber, err)
	}
	return png, nil
}
