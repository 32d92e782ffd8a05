/*
config.go - User preferences file

PURPOSE:
  Loads the optional TOML preferences file controlling the period policy.
  Absent file means calendar months; a present file can switch to
  financial months anchored on a start day.

FILE FORMAT (TOML):
  financial_enabled = true
  financial_start_day = 25

VALIDATION:
  financial_start_day outside 1..31 is a startup error. A bad policy
  would silently produce journals keyed to the wrong months, so the
  server refuses to start instead.
*/
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/warp/ledger-engine/engine"
)

// Prefs holds the user-editable settings. Implements engine.Preferences.
type Prefs struct {
	FinancialEnabled  bool `toml:"financial_enabled"`
	FinancialStartDay int  `toml:"financial_start_day"`
}

func (p Prefs) FinancialPeriodEnabled() bool { return p.FinancialEnabled }
func (p Prefs) FinancialPeriodStartDay() int { return p.FinancialStartDay }

// loadPrefs reads the preferences file. A missing file yields defaults
// (calendar periods); a malformed file or an invalid start day is an error.
func loadPrefs(path string) (Prefs, error) {
	prefs := Prefs{FinancialStartDay: 1}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return prefs, nil
	}
	if _, err := toml.DecodeFile(path, &prefs); err != nil {
		return Prefs{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if prefs.FinancialEnabled {
		if prefs.FinancialStartDay < 1 || prefs.FinancialStartDay > 31 {
			return Prefs{}, fmt.Errorf("%s: financial_start_day %d: %w",
				path, prefs.FinancialStartDay, engine.ErrInvalidStartDay)
		}
	}
	return prefs, nil
}
