package fingerprint

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Device is the canonical description of a client device/browser. Only the
// SHA3-256 hash of this structure is ever stored; raw fingerprints never
// leave the request path.
type Device struct {
	UserAgent      string `json:"user_agent" validate:"required"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	ColorDepth     int    `json:"color_depth"`
	TimezoneOffset int    `json:"timezone_offset"`
	Language       string `json:"language"`
	Platform       string `json:"platform"`
	GPURenderer    string `json:"gpu_renderer,omitempty"`
	CanvasSignal   string `json:"canvas_signal,omitempty"`
}

// Canonicalize produces a stable string form of the fingerprint. Field order
// is fixed so equal devices always hash to the same value.
func Canonicalize(d Device) string {
	parts := []string{
		strings.TrimSpace(d.UserAgent),
		fmt.Sprintf("%dx%dx%d", d.ScreenWidth, d.ScreenHeight, d.ColorDepth),
		fmt.Sprintf("tz=%d", d.TimezoneOffset),
		strings.ToLower(strings.TrimSpace(d.Language)),
		strings.ToLower(strings.TrimSpace(d.Platform)),
		strings.TrimSpace(d.GPURenderer),
		strings.TrimSpace(d.CanvasSignal),
	}
	return strings.Join(parts, "|")
}

// Hash returns the hex SHA3-256 digest of the canonicalized fingerprint.
func Hash(d Device) string {
	sum := sha3.Sum256([]byte(Canonicalize(d)))
	return hex.EncodeToString(sum[:])
}

// HashToken returns the hex SHA3-256 digest of a raw session token. Tokens
// are stored only in this form.
func HashToken(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Validate reports whether the fingerprint carries the minimum signal needed
// for comparison.
func (d Device) Validate() error {
	if strings.TrimSpace(d.UserAgent) == "" {
		return fmt.Errorf("fingerprint missing user agent")
	}
	return nil
}
