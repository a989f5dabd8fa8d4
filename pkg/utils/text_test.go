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
	if got := Truncate("بسم الله", 3); got != "بسم..." {
		t.Errorf("multibyte: got %q", got)
	}
	if got := Truncate("بسم", 3); got != "بسم" {
		t.Errorf("exact length: got %q", got)
	}
}

func TestMaskSecret(t *testing.T) {
	for in, want := range map[string]string{
		"":            "",
		"abc":         "****",
		"sk-test1234": "****1234",
	} {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
