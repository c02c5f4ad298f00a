package errors

import (
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "plain app error",
			err:  New(ErrCodeNotFound, "student not found"),
			want: ErrCodeNotFound,
		},
		{
			name: "wrapped app error",
			err:  Wrap(fmt.Errorf("dial tcp: refused"), ErrCodeStorage, "balance read failed"),
			want: ErrCodeStorage,
		},
		{
			name: "app error behind fmt wrapping",
			err:  fmt.Errorf("purchase: %w", New(ErrCodeInsufficientFunds, "need 15 coins")),
			want: ErrCodeInsufficientFunds,
		},
		{
			name: "non-app error",
			err:  fmt.Errorf("boom"),
			want: ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := New(ErrCodePaymentFailed, "debit ok, grant failed")
	if !HasCode(err, ErrCodePaymentFailed) {
		t.Error("HasCode() = false, want true")
	}
	if HasCode(err, ErrCodeNotFound) {
		t.Error("HasCode() matched wrong code")
	}
	if HasCode(nil, ErrCodeNotFound) {
		t.Error("HasCode(nil) = true, want false")
	}
}

func TestAppError_Error(t *testing.T) {
	plain := New(ErrCodeValidation, "amount must be positive")
	if plain.Error() != "VALIDATION_ERROR: amount must be positive" {
		t.Errorf("unexpected message: %s", plain.Error())
	}

	wrapped := Wrap(fmt.Errorf("context deadline exceeded"), ErrCodeStorage, "update failed")
	want := "STORAGE_ERROR: update failed (context deadline exceeded)"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}
