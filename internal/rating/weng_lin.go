// Package rating implements the Weng-Lin Bayesian skill rating model as
// a pure function. SPEC_FULL.md §9 sanctions a direct port here because
// no Go library in the example corpus (or its wider ecosystem) offers
// Weng-Lin multi-team ratings; the reference the original server used
// was the Rust `skillratings` crate's `weng_lin_multi_team`. This file
// implements a pairwise Bradley-Terry-style update after Weng & Lin
// ("A Bayesian Approximation Method for Online Ranking", 2011), averaging
// each entry's per-opponent terms over its n-1 opponents; it is not a
// line-for-line copy of that crate's multi-team computation.
package rating

import "math"

// Config holds the model's tunable constants. Beta is the "class
// width": with zero sigma, two players one beta apart in mu give the
// higher-rated one roughly a 67% expected win probability. SigmaFloor is
// the lowest sigma an update may produce (a floor against
// overconfidence); DefaultConfig sets it to 5% of the default sigma.
type Config struct {
	Beta        float64
	SigmaFloor  float64
}

// DefaultConfig matches the constants implied by the leaderboard
// entries' DefaultMu/DefaultSigma seeding.
func DefaultConfig() Config {
	const defaultSigma = 25.0 / 3.0
	return Config{
		Beta:       defaultSigma / 2,
		SigmaFloor: defaultSigma * 0.05,
	}
}

// Entry is one participant's rating going into a match, tagged with
// their finishing placement (1 = best; ties share a placement).
type Entry struct {
	ID        string
	Mu        float64
	Sigma     float64
	Placement int
}

// Update is the result of one participant's rating after ComputeUpdates.
type Update struct {
	ID                string
	MuBefore          float64
	MuAfter           float64
	SigmaBefore       float64
	SigmaAfter        float64
	DisplayScoreBefore float64
	DisplayScoreAfter  float64
}

// DisplayScore is the conservative skill estimate used for matchmaking
// and leaderboard ordering: mu minus three sigma, so a rating is only
// shown as high once its uncertainty has narrowed (SPEC_FULL.md §8).
func DisplayScore(mu, sigma float64) float64 {
	return mu - 3*sigma
}

// ComputeUpdates runs one round of pairwise Weng-Lin updates across all
// entries in a single match. It is a pure function: identical input
// always produces identical output, which is what lets the rating
// engine run it twice for the same match and discard the second result
// via the storage-level idempotency check instead of needing in-memory
// locking (SPEC_FULL.md §4.D, §8).
func ComputeUpdates(entries []Entry, cfg Config) []Update {
	n := len(entries)
	updates := make([]Update, n)
	if n < 2 {
		for i, e := range entries {
			updates[i] = Update{
				ID: e.ID, MuBefore: e.Mu, MuAfter: e.Mu,
				SigmaBefore: e.Sigma, SigmaAfter: e.Sigma,
				DisplayScoreBefore: DisplayScore(e.Mu, e.Sigma),
				DisplayScoreAfter:  DisplayScore(e.Mu, e.Sigma),
			}
		}
		return updates
	}

	muDelta := make([]float64, n)
	sigmaShrink := make([]float64, n) // average of per-pair (sigma_i^2/c^2)*v, subtracted from 1
	pairCount := n - 1

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			c := math.Sqrt(2*cfg.Beta*cfg.Beta + entries[i].Sigma*entries[i].Sigma + entries[j].Sigma*entries[j].Sigma)
			expectedWin := 1 / (1 + math.Exp((entries[j].Mu-entries[i].Mu)/c))

			actualScore := pairScore(entries[i].Placement, entries[j].Placement)

			gradient := (entries[i].Sigma * entries[i].Sigma / c) * (actualScore - expectedWin)
			muDelta[i] += gradient / float64(pairCount)

			v := expectedWin * (1 - expectedWin)
			sigmaShrink[i] += (entries[i].Sigma * entries[i].Sigma / (c * c)) * v / float64(pairCount)
		}
	}

	for i, e := range entries {
		newMu := e.Mu + muDelta[i]

		shrinkFactor := 1 - sigmaShrink[i]
		if shrinkFactor < 0.01 {
			shrinkFactor = 0.01
		}
		newSigma := e.Sigma * math.Sqrt(shrinkFactor)
		if newSigma < cfg.SigmaFloor {
			newSigma = cfg.SigmaFloor
		}

		updates[i] = Update{
			ID:                 e.ID,
			MuBefore:           e.Mu,
			MuAfter:            newMu,
			SigmaBefore:        e.Sigma,
			SigmaAfter:         newSigma,
			DisplayScoreBefore: DisplayScore(e.Mu, e.Sigma),
			DisplayScoreAfter:  DisplayScore(newMu, newSigma),
		}
	}

	return updates
}

// pairScore returns i's actual score against j: 1 for a better
// placement, 0 for worse, 0.5 for a tie.
func pairScore(placementI, placementJ int) float64 {
	switch {
	case placementI < placementJ:
		return 1
	case placementI > placementJ:
		return 0
	default:
		return 0.5
	}
}
