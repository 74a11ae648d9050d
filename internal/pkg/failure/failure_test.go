package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("upload: %w", New(KindTimeout, "parse", errors.New("deadline")))

	if !errors.Is(err, ErrTimeout) {
		t.Error("wrapped timeout should match ErrTimeout")
	}
	if errors.Is(err, ErrTransport) {
		t.Error("timeout must not match ErrTransport")
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("KindOf = %v", KindOf(err))
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(KindTransport, "fetch", nil), true},
		{New(KindTimeout, "fetch", nil), true},
		{New(KindFormat, "fetch", nil), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := Transient(tt.err); got != tt.want {
			t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMessageOf(t *testing.T) {
	if MessageOf(ErrBusy) != "An upload is already in progress" {
		t.Errorf("unexpected busy message %q", MessageOf(ErrBusy))
	}
	if MessageOf(errors.New("x")) != "Something went wrong" {
		t.Errorf("unexpected generic message %q", MessageOf(errors.New("x")))
	}
}
