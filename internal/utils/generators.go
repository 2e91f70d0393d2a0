package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/puznanski/SIK-ticketserver/internal/models"
)

const (
	// TicketCodeLength is the fixed width of an issued ticket code.
	TicketCodeLength = 7

	ticketCodeBase = 36

	cookieMin = 0x21
	cookieMax = 0x7E
)

// TicketCode renders a ticket number as its fixed-width wire code:
// base-36 digits 0-9A-Z, least-significant digit first, right-padded
// with '0' to exactly 7 characters.
func TicketCode(ticketNumber uint64) string {
	code := make([]byte, 0, TicketCodeLength)
	for ticketNumber > 0 {
		digit := byte(ticketNumber % ticketCodeBase)
		if digit <= 9 {
			code = append(code, '0'+digit)
		} else {
			code = append(code, 'A'+digit-10)
		}
		ticketNumber /= ticketCodeBase
	}
	for len(code) < TicketCodeLength {
		code = append(code, '0')
	}
	return string(code)
}

// IsTicketCode reports whether s is a well-formed ticket code: exactly
// 7 characters, each in 0-9A-Z.
func IsTicketCode(s string) bool {
	if len(s) != TicketCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// GenerateCookie draws a fresh 48-byte reservation cookie, each byte
// uniform over the printable ASCII range [0x21, 0x7E].
func GenerateCookie() []byte {
	cookie := make([]byte, models.CookieLength)
	span := big.NewInt(cookieMax - cookieMin + 1)
	for i := range cookie {
		n, _ := rand.Int(rand.Reader, span)
		cookie[i] = byte(n.Int64()) + cookieMin
	}
	return cookie
}
