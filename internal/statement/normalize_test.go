package statement

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeDescriptor(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lower cases", "Spotify Premium", "spotify premium"},
		{"strips reference number", "NETFLIX.COM #12345678", "netflix.com"},
		{"strips trailing check number", "CHECK 1234", "check"},
		{"strips location code", "POS DEBIT NETFLIX.COM CA12345", "pos debit netflix.com"},
		{"strips inline date", "PAYMENT 01/15/2024 ACME CORP", "payment acme corp"},
		{"collapses whitespace", "AMZN   MKTP   US", "amzn mktp us"},
		{"short numbers survive", "7-ELEVEN 711", "7-eleven 711"},
		{"empty input", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDescriptor(tt.raw); got != tt.want {
				t.Errorf("NormalizeDescriptor(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeDescriptorStableAcrossNoise(t *testing.T) {
	// Two charges from the same merchant should normalize to the same key
	// even when the bank appends different reference noise.
	a := NormalizeDescriptor("NETFLIX.COM #90021001")
	b := NormalizeDescriptor("netflix.com #90021944")
	if a != b {
		t.Fatalf("expected identical keys, got %q and %q", a, b)
	}
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips channel prefix", "POS NETFLIX.COM 123456789", "Netflix.com"},
		{"strips ref tail", "ACH SPOTIFY USA REF 99887766", "Spotify Usa"},
		{"title cases", "MCDONALDS", "Mcdonalds"},
		{"keeps plain names", "City Gym Membership", "City Gym Membership"},
		{"falls back when emptied", "1234567890", "1234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMerchantName(tt.raw); got != tt.want {
				t.Errorf("CleanMerchantName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCleanMerchantNameCapsLength(t *testing.T) {
	long := strings.Repeat("Verylongword ", 20)
	got := CleanMerchantName(long)
	if len(got) != 100 {
		t.Fatalf("expected name capped at 100 characters, got %d: %q", len(got), got)
	}
}

func TestCleanMerchantNameCapCountsRunes(t *testing.T) {
	long := strings.Repeat("Café ", 40)
	got := CleanMerchantName(long)
	if !utf8.ValidString(got) {
		t.Fatalf("cap split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Errorf("got %d runes, want 100", n)
	}
}
