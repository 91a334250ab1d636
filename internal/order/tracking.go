package order

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	trackingPrefix   = "DF"
	trackingAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trackingSuffix   = 4
)

// NewTrackingNumber returns DF<unix millis><4 upper-case base36 chars>.
// The store's unique index is the authority on uniqueness.
func NewTrackingNumber(now time.Time) string {
	var b strings.Builder
	b.WriteString(trackingPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	for range trackingSuffix {
		b.WriteByte(trackingAlphabet[rand.IntN(len(trackingAlphabet))])
	}
	return b.String()
}

func IsTrackingNumber(s string) bool {
	if !strings.HasPrefix(s, trackingPrefix) || len(s) <= len(trackingPrefix)+trackingSuffix {
		return false
	}
	digits := s[len(trackingPrefix) : len(s)-trackingSuffix]
	if _, err := strconv.ParseInt(digits, 10, 64); err != nil {
		return false
	}
	for _, c := range s[len(s)-trackingSuffix:] {
		if !strings.ContainsRune(trackingAlphabet, c) {
			return false
		}
	}
	return true
}
