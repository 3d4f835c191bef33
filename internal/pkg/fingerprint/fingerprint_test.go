package fingerprint

import (
	"strings"
	"testing"
)

func testDevice() Device {
	return Device{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0",
		ScreenWidth:    1920,
		ScreenHeight:   1080,
		ColorDepth:     24,
		TimezoneOffset: -120,
		Language:       "en-US",
		Platform:       "Linux",
	}
}

func TestCanonicalize_Stable(t *testing.T) {
	d := testDevice()
	if Canonicalize(d) != Canonicalize(d) {
		t.Error("Canonicalize() not deterministic for equal devices")
	}

	// Whitespace and casing of language/platform must not change the form
	normalized := testDevice()
	normalized.Language = "  EN-us "
	normalized.Platform = "LINUX"
	if Canonicalize(normalized) != Canonicalize(d) {
		t.Error("Canonicalize() sensitive to whitespace or language/platform casing")
	}
}

func TestHash(t *testing.T) {
	d := testDevice()

	h := Hash(d)
	if len(h) != 64 {
		t.Fatalf("Hash() length = %d, want 64 hex chars", len(h))
	}
	if h != Hash(d) {
		t.Error("Hash() not deterministic")
	}
	if strings.Contains(h, Canonicalize(d)[:8]) {
		t.Error("Hash() leaks raw fingerprint content")
	}

	changed := testDevice()
	changed.ScreenWidth = 1280
	if Hash(changed) == h {
		t.Error("Hash() identical after a field change")
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("opaque-session-token")
	if len(h) != 64 {
		t.Fatalf("HashToken() length = %d, want 64 hex chars", len(h))
	}
	if h == HashToken("other-token") {
		t.Error("HashToken() collides for distinct tokens")
	}
	if h == HashToken("opaque-session-token ") {
		t.Error("HashToken() ignores trailing whitespace, tokens are opaque bytes")
	}
}

func TestDevice_Validate(t *testing.T) {
	if err := testDevice().Validate(); err != nil {
		t.Errorf("Validate() error = %v for a complete fingerprint", err)
	}

	empty := Device{UserAgent: "   "}
	if err := empty.Validate(); err == nil {
		t.Error("Validate() accepted a fingerprint without a user agent")
	}
}
