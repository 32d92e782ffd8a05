/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Accounts are created
	- Transactions are seeded
	- Journals regenerate and balances match expected values

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/warp/ledger-engine/engine"
)

func loadScenario(t *testing.T, serverURL, id string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, serverURL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("loading %s: expected 200, got %d", id, resp.StatusCode)
	}
}

func TestListScenarios(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/scenarios", nil)
	listed := decode[[]ScenarioDTO](t, resp)
	if len(listed) != len(scenarios) {
		t.Errorf("expected %d scenarios, got %d", len(scenarios), len(listed))
	}
}

func TestLoadScenario_UnknownID(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoadScenario_SingleAccount(t *testing.T) {
	// GIVEN: The single-account scenario
	// THEN: January's journal is generated and February chains from it
	//       (1000 + 2500 - 900 - 310 = 2290)

	server, _ := newTestServer(t)
	loadScenario(t, server.URL, "single-account")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/balance/2025-01?account=checking", nil)
	balance := decode[ClosingBalanceDTO](t, resp)
	if balance.Amount != "2290" {
		t.Errorf("expected January closing 2290, got %s", balance.Amount)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/journal/2025-02?account=checking", nil)
	journal := decode[JournalDTO](t, resp)
	assertEntryAmount(t, journal, "opening", "2290")
}

func TestLoadScenario_TwoAccounts_TransferNeutral(t *testing.T) {
	// GIVEN: The two-accounts scenario with monthly transfers
	// THEN: The consolidated balance equals the sum of the account balances

	server, _ := newTestServer(t)
	loadScenario(t, server.URL, "two-accounts")

	checking := decode[ClosingBalanceDTO](t, doJSON(t, http.MethodGet, server.URL+"/api/balance/2025-03?account=checking", nil))
	savings := decode[ClosingBalanceDTO](t, doJSON(t, http.MethodGet, server.URL+"/api/balance/2025-03?account=savings", nil))
	all := decode[ClosingBalanceDTO](t, doJSON(t, http.MethodGet, server.URL+"/api/balance/2025-03", nil))

	sum := engine.MustParseAmount(checking.Amount).Add(engine.MustParseAmount(savings.Amount))
	if !engine.MustParseAmount(all.Amount).Equal(sum) {
		t.Errorf("consolidated %s != %s + %s", all.Amount, checking.Amount, savings.Amount)
	}
}

func TestLoadScenario_Adjusted(t *testing.T) {
	// GIVEN: The adjusted scenario with a February correction
	// THEN: February reports the adjusted source and March opens there

	server, _ := newTestServer(t)
	loadScenario(t, server.URL, "adjusted")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/balance/2025-02?account=checking", nil)
	balance := decode[ClosingBalanceDTO](t, resp)
	if balance.Source != string(engine.SourceAdjusted) {
		t.Errorf("expected adjusted source, got %s", balance.Source)
	}
	if balance.Amount != "3975.5" {
		t.Errorf("expected 3975.5, got %s", balance.Amount)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/journal/2025-03?account=checking", nil)
	journal := decode[JournalDTO](t, resp)
	assertEntryAmount(t, journal, "opening", "3975.5")
}

func TestGetCurrentScenario_TracksLastLoad(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/scenarios/current", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	loadScenario(t, server.URL, "single-account")
	current := decode[ScenarioDTO](t, doJSON(t, http.MethodGet, server.URL+"/api/scenarios/current", nil))
	if current.ID != "single-account" {
		t.Errorf("expected single-account, got %s", current.ID)
	}
}
