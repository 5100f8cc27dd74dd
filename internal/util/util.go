package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatKm renders a distance without trailing zeros: 10 -> "10",
// 21.1 -> "21.1".
func FormatKm(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func NewInviteCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
