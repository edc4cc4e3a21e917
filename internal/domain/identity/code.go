package identity

import (
	"fmt"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/okian/rollcall/internal/domain/model"
)

// DefaultPrefix marks a structured person code, e.g. PERSON_42.
const DefaultPrefix = "PERSON_"

// Parsed is a classified payload: either a structured code id or an opaque token.
type Parsed struct {
	PersonID   int64
	Token      string
	Structured bool
}

// ParsePayload classifies payload. Empty input, or the prefix followed by
// anything but a positive integer, is malformed.
func ParsePayload(prefix, payload string) (Parsed, error) {
	text := strings.TrimSpace(payload)
	if text == "" {
		return Parsed{}, fmt.Errorf("%w: empty payload", model.ErrPayloadMalformed)
	}
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Parsed{Token: text}, nil
	}
	raw := strings.TrimPrefix(text, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return Parsed{}, fmt.Errorf("%w: %q has no numeric id after %q", model.ErrPayloadMalformed, text, prefix)
	}
	return Parsed{PersonID: id, Structured: true}, nil
}

// EncodeCode is the inverse of ParsePayload for structured codes.
func EncodeCode(prefix string, personID int64) string {
	return prefix + strconv.FormatInt(personID, 10)
}

// BadgePNG renders the structured code for personID as a QR image.
func BadgePNG(prefix string, personID int64, size int) ([]byte, error) {
	if personID <= 0 {
		return nil, fmt.Errorf("%w: person id must be positive", ErrInvalidBadge)
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(EncodeCode(prefix, personID), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBadge, err)
	}
	return png, nil
}
