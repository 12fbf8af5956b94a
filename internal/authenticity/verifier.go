// Package authenticity binds a physical serial number to an unforgeable
// verification token. The QR on the product carries only the serial; the token
// reaches the legitimate buyer through their order record, so cloning the QR
// alone is not enough to pass verification.
//
// The shared derivation secret is the sole source of unforgeability. If it
// leaks, every issued token is forgeable; rotating it invalidates all
// previously issued tokens. This is a deliberate design trade-off, not an
// accident.
package authenticity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/chaintrack/chaintrack/internal/units"
)

// UnitSource is the read-only view of the unit ledger used for verification.
type UnitSource interface {
	FindBySerial(ctx context.Context, serial string) ([]units.Unit, error)
}

type Verifier struct {
	secret []byte
	Units  UnitSource
}

// New builds a verifier around the process-wide secret. The secret is set once
// at startup and never changes for the life of the process.
func New(secret string, source UnitSource) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("authenticity secret is empty")
	}
	return &Verifier{secret: []byte(secret), Units: source}, nil
}

// DeriveHash is pure: same serial and manufacturer always yield the same token.
func (v *Verifier) DeriveHash(serialNumber, manufacturerID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(serialNumber))
	mac.Write([]byte{0})
	mac.Write([]byte(manufacturerID))
	return hex.EncodeToString(mac.Sum(nil))
}

// UnitInfo is the metadata a successful verification may reveal. It never
// carries the stored token.
type UnitInfo struct {
	ProductID      string       `json:"product_id"`
	SerialNumber   string       `json:"serial_number"`
	ManufacturerID string       `json:"manufacturer_id"`
	Status         units.Status `json:"status"`
}

type Result struct {
	Valid bool      `json:"valid"`
	Unit  *UnitInfo `json:"unit,omitempty"`
}

// Verify checks a scanned serial against a claimed token. "Not authentic" is a
// normal outcome, never an error: unknown serials, missing tokens and
// mismatches all come back Valid=false. Errors are reserved for the store
// itself failing.
func (v *Verifier) Verify(ctx context.Context, scannedSerial, claimedToken string) (Result, error) {
	if scannedSerial == "" || claimedToken == "" {
		return Result{}, nil
	}
	candidates, err := v.Units.FindBySerial(ctx, scannedSerial)
	if err != nil {
		return Result{}, err
	}
	for _, u := range candidates {
		if u.AuthHash == "" {
			continue
		}
		if hmac.Equal([]byte(u.AuthHash), []byte(claimedToken)) {
			return Result{Valid: true, Unit: &UnitInfo{
				ProductID:      u.ProductID,
				SerialNumber:   u.SerialNumber,
				ManufacturerID: u.ManufacturerID,
				Status:         u.Status,
			}}, nil
		}
	}
	return Result{}, nil
}
