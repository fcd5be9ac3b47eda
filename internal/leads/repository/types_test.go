package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
)

func TestMatchViewCarriesLifecycleTimestamps(t *testing.T) {
	declined := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	won := declined.Add(time.Hour)
	lost := declined.Add(2 * time.Hour)
	m := Match{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		LeadID:      uuid.New(),
		ProID:       uuid.New(),
		CompanyID:   uuid.New(),
		Status:      domain.MatchStatusWon,
		PriceCents:  4000,
		DeclinedAt:  &declined,
		WonAt:       &won,
		LostAt:      &lost,
	}

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal match: %v", err)
	}
	var view map[string]any
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal match view: %v", err)
	}

	for _, key := range []string{"declinedAt", "wonAt", "lostAt"} {
		if _, ok := view[key]; !ok {
			t.Errorf("match view must expose %s", key)
		}
	}

	m = Match{ID: m.ID, WorkspaceID: m.WorkspaceID, LeadID: m.LeadID,
		ProID: m.ProID, CompanyID: m.CompanyID, Status: domain.MatchStatusOffered, PriceCents: 4000}
	raw, err = json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal pending match: %v", err)
	}
	view = map[string]any{}
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal pending match view: %v", err)
	}
	for _, key := range []string{"declinedAt", "wonAt", "lostAt"} {
		if _, ok := view[key]; ok {
			t.Errorf("pending match must omit %s", key)
		}
	}
}
