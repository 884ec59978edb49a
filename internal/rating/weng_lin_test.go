package rating

import "testing"

func TestComputeUpdatesWinnerGainsMuLoserLoses(t *testing.T) {
	entries := []Entry{
		{ID: "winner", Mu: 25, Sigma: DefaultConfig().SigmaFloor * 4, Placement: 1},
		{ID: "loser", Mu: 25, Sigma: DefaultConfig().SigmaFloor * 4, Placement: 2},
	}

	updates := ComputeUpdates(entries, DefaultConfig())
	byID := indexByID(updates)

	if byID["winner"].MuAfter <= byID["winner"].MuBefore {
		t.Errorf("winner's mu should increase: %.4f -> %.4f", byID["winner"].MuBefore, byID["winner"].MuAfter)
	}
	if byID["loser"].MuAfter >= byID["loser"].MuBefore {
		t.Errorf("loser's mu should decrease: %.4f -> %.4f", byID["loser"].MuBefore, byID["loser"].MuAfter)
	}
}

func TestComputeUpdatesSigmaAlwaysShrinks(t *testing.T) {
	entries := []Entry{
		{ID: "a", Mu: 20, Sigma: 8.0, Placement: 1},
		{ID: "b", Mu: 30, Sigma: 8.0, Placement: 2},
		{ID: "c", Mu: 25, Sigma: 8.0, Placement: 3},
	}

	for _, u := range ComputeUpdates(entries, DefaultConfig()) {
		if u.SigmaAfter >= u.SigmaBefore {
			t.Errorf("%s's sigma should strictly decrease: %.4f -> %.4f", u.ID, u.SigmaBefore, u.SigmaAfter)
		}
	}
}

func TestComputeUpdatesDisplayScoreFormula(t *testing.T) {
	entries := []Entry{
		{ID: "a", Mu: 25, Sigma: 8.0, Placement: 1},
		{ID: "b", Mu: 25, Sigma: 8.0, Placement: 2},
	}

	for _, u := range ComputeUpdates(entries, DefaultConfig()) {
		want := u.MuAfter - 3*u.SigmaAfter
		if u.DisplayScoreAfter != want {
			t.Errorf("%s: display score = %.6f, want mu-3*sigma = %.6f", u.ID, u.DisplayScoreAfter, want)
		}
	}
}

func TestComputeUpdatesUpsetIsBiggerThanEvenWin(t *testing.T) {
	// Case 1: evenly matched winner.
	even := ComputeUpdates([]Entry{
		{ID: "w", Mu: 25, Sigma: 8.0, Placement: 1},
		{ID: "l", Mu: 25, Sigma: 8.0, Placement: 2},
	}, DefaultConfig())

	// Case 2: big underdog wins against a much higher-rated opponent.
	upset := ComputeUpdates([]Entry{
		{ID: "w", Mu: 10, Sigma: 8.0, Placement: 1},
		{ID: "l", Mu: 40, Sigma: 8.0, Placement: 2},
	}, DefaultConfig())

	evenGain := indexByID(even)["w"].MuAfter - indexByID(even)["w"].MuBefore
	upsetGain := indexByID(upset)["w"].MuAfter - indexByID(upset)["w"].MuBefore

	if upsetGain <= evenGain {
		t.Errorf("an upset win should gain more mu than an evenly-matched win: upset=%.4f even=%.4f", upsetGain, evenGain)
	}
}

func TestComputeUpdatesTieLeavesMuUnchanged(t *testing.T) {
	entries := []Entry{
		{ID: "a", Mu: 25, Sigma: 8.0, Placement: 1},
		{ID: "b", Mu: 25, Sigma: 8.0, Placement: 1},
	}

	for _, u := range ComputeUpdates(entries, DefaultConfig()) {
		if u.MuAfter != u.MuBefore {
			t.Errorf("%s: a tie between identical ratings should not move mu, got %.6f -> %.6f", u.ID, u.MuBefore, u.MuAfter)
		}
	}
}

func TestComputeUpdatesSingleEntryIsIdentity(t *testing.T) {
	entries := []Entry{{ID: "solo", Mu: 25, Sigma: 8.0, Placement: 1}}
	updates := ComputeUpdates(entries, DefaultConfig())
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].MuAfter != updates[0].MuBefore || updates[0].SigmaAfter != updates[0].SigmaBefore {
		t.Errorf("a single-entry match should not change any rating")
	}
}

func indexByID(updates []Update) map[string]Update {
	out := make(map[string]Update, len(updates))
	for _, u := range updates {
		out[u.ID] = u
	}
	return out
}
