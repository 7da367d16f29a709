package catalog

import (
	"testing"
	"time"
)

func TestToKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Classic Tee", "classic-tee"},
		{"  Desk   Lamp!! ", "desk-lamp"},
		{"USB-C Cable (2m)", "usb-c-cable-2m"},
		{"Áo thun", "o-thun"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := toKebab(tt.in); got != tt.want {
			t.Errorf("toKebab(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProductSlug(t *testing.T) {
	now := time.Unix(1704164645, 0)

	if got := productSlug("Classic Tee", 1, now); got != "classic-tee-1-1704164645" {
		t.Errorf("unexpected slug %s", got)
	}
	if got := productSlug("!!!", 2, now); got != "2-1704164645" {
		t.Errorf("unexpected slug for symbol-only name %s", got)
	}
}
