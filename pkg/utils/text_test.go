package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("縦書きの本", 3); got != "縦書き..." {
		t.Errorf("runes: got %s", got)
	}
	if got := Truncate("縦書き", 3); got != "縦書き" {
		t.Errorf("exact length: got %s", got)
	}
}

func TestDisplayWidth(t *testing.T) {
	tests := map[string]int{
		"":    0,
		"abc": 3,
		"縦書き": 6,
		"ＡＢ":  4,
		"a縦":  3,
		"ｶﾅ":  2,
	}
	for s, want := range tests {
		if got := DisplayWidth(s); got != want {
			t.Errorf("DisplayWidth(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		in   string
		cols int
		want string
	}{
		{"ab", 4, "ab  "},
		{"縦", 4, "縦  "},
		{"abcdef", 4, "abc…"},
		{"縦書きの本", 6, "縦書… "},
		{"abcd", 4, "abcd"},
	}
	for _, tt := range tests {
		if got := PadRight(tt.in, tt.cols); got != tt.want {
			t.Errorf("PadRight(%q, %d) = %q, want %q", tt.in, tt.cols, got, tt.want)
		}
	}
}
