package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"e164 us", "+12125551234", "+12125551234"},
		{"us national", "(212) 555-1234", "+12125551234"},
		{"whitespace", "  +12125551234  ", "+12125551234"},
		{"garbage", "not a phone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello   world  ", "hello world"},
		{"", ""},
		{"one\t\ntwo", "one two"},
	}

	for _, tt := range tests {
		if got := TrimAndNormalize(tt.input); got != tt.expected {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
