package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashingLifecycle(t *testing.T) {
	hash, err := HashPassword("  S3curePass!  ")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := VerifyPassword(hash, "S3curePass!"); err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if err := VerifyPassword(hash, "wrong-password"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("VerifyPassword(wrong) = %v, want ErrInvalidPassword", err)
	}
	if err := VerifyPassword("", "S3curePass!"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("VerifyPassword(empty hash) = %v, want ErrInvalidPassword", err)
	}
}

func TestNormalizePassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "ok", input: "password1", want: "password1"},
		{name: "trimmed", input: "  password1 ", want: "password1"},
		{name: "too short", input: "short", wantErr: true},
		{name: "blank", input: "           ", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 73), wantErr: true},
		{name: "max length", input: strings.Repeat("a", 72), want: strings.Repeat("a", 72)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePassword(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrWeakPassword) {
					t.Fatalf("NormalizePassword() error = %v, want ErrWeakPassword", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("NormalizePassword() = %q, %v", got, err)
			}
		})
	}
}
