package ethereum

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"github.com/AlexZinkM/keyvault/internal/address"
)

const defaultQRSize = 256

// AddressQR renders the checksum address as a PNG QR code of size pixels.
// size <= 0 selects the default of 256.
func AddressQR(addr address.Address, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}

	qr, err := qrcode.New(addr.String(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	// Get PNG image
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(addr address.Address) (string, error) {
	png, err := AddressQR(addr, defaultQRSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
