package main

import (
	"slices"
	"testing"
)

func TestWSOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"http://localhost:3000", []string{"localhost:3000"}},
		{"https://admin.circularsync.io", []string{"admin.circularsync.io"}},
		{"*", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := wsOrigins(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("wsOrigins(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
