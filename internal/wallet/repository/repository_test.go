package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWalletViewCarriesLifetimeTotals(t *testing.T) {
	charged := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	w := Wallet{
		ID:                    uuid.New(),
		WorkspaceID:           uuid.New(),
		CompanyID:             uuid.New(),
		BalanceCents:          1500,
		LifetimeSpentCents:    5000,
		LifetimeRefundedCents: 2500,
		LastChargeAt:          &charged,
	}

	raw, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("marshal wallet: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal wallet view: %v", err)
	}

	for key, want := range map[string]float64{
		"balanceCents":          1500,
		"lifetimeSpentCents":    5000,
		"lifetimeRefundedCents": 2500,
	} {
		got, ok := view[key].(float64)
		if !ok {
			t.Fatalf("wallet view must expose %s", key)
		}
		if got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
	if _, ok := view["lastChargeAt"]; !ok {
		t.Fatal("wallet view must expose lastChargeAt once a charge happened")
	}
}
