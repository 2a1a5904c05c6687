package pdberr

import (
	"errors"
	"testing"
)

func TestWrapFormatsPrefixAndCause(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := Wrap(IoError, "exec failed", cause)

	const want = "exec failed: no such file or directory"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(InvalidArgument, "invalid pid")
	if !Is(err, InvalidArgument) {
		t.Errorf("Is(err, InvalidArgument) = false, want true")
	}
	if Is(err, NotFound) {
		t.Errorf("Is(err, NotFound) = true, want false")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(IoError, "waitpid failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestIsOnPlainErrorIsFalse(t *testing.T) {
	if Is(errors.New("plain"), IoError) {
		t.Errorf("Is(plain error, IoError) = true, want false")
	}
}
