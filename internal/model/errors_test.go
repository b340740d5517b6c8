package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Errorf(CodePoolNotFound, "pool %d not found", 999)
	wrapped := fmt.Errorf("join pool: %w", err)

	if !errors.Is(wrapped, ErrPoolNotFound) {
		t.Fatalf("expected pool not found match")
	}
	if errors.Is(wrapped, ErrAssetNotFound) {
		t.Fatalf("unexpected asset not found match")
	}
	if got := CategoryOf(wrapped); got != CategoryStateNotFound {
		t.Fatalf("category mismatch: %s", got)
	}
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want Category
	}{
		{CodeInvalidNumericFormat, CategoryInputValidation},
		{CodeInvalidSlippage, CategoryInputValidation},
		{CodeUnknownCurrency, CategoryInputValidation},
		{CodeMissingField, CategoryInputValidation},
		{CodePoolNotFound, CategoryStateNotFound},
		{CodeAssetNotFound, CategoryStateNotFound},
		{CodeSubmissionFailed, CategorySubmissionFailure},
		{CodeChainRejected, CategoryChainRejection},
	}
	for _, tc := range cases {
		if got := CategoryOf(Errorf(tc.code, "x")); got != tc.want {
			t.Fatalf("%s: category %s != %s", tc.code, got, tc.want)
		}
	}
	if got := CategoryOf(errors.New("plain")); got != CategoryNone {
		t.Fatalf("plain error category: %s", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeSubmissionFailed, cause, "broadcast")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if err.Error() != "[SUBMISSION_FAILED] broadcast: connection refused" {
		t.Fatalf("message mismatch: %s", err.Error())
	}
}

func TestPoolFindAsset(t *testing.T) {
	pool := PoolSnapshot{ID: 7, Assets: []PoolAsset{{Denom: "uosmo", Balance: "10", Weight: "1"}}}
	if _, err := pool.FindAsset("uatom"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if pool.ShareDenom() != "gamm/pool/7" {
		t.Fatalf("share denom mismatch: %s", pool.ShareDenom())
	}
	if !IsShareDenom(pool.ShareDenom()) {
		t.Fatalf("share denom not recognized")
	}
}
