// Package ticket generates passenger name records and printable e-tickets.
package ticket

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
)

const pnrAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PNRLength is the length of generated passenger name records
const PNRLength = 6

// GeneratePNR returns a 6-character uppercase alphanumeric record locator.
// It prefers crypto randomness and falls back to math/rand when the system
// source is unavailable.
func GeneratePNR() string {
	buf := make([]byte, PNRLength)
	max := big.NewInt(int64(len(pnrAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return fallbackPNR()
		}
		buf[i] = pnrAlphabet[n.Int64()]
	}
	return string(buf)
}

func fallbackPNR() string {
	buf := make([]byte, PNRLength)
	for i := range buf {
		buf[i] = pnrAlphabet[mrand.Intn(len(pnrAlphabet))]
	}
	return string(buf)
}
