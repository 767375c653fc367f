package match

import (
	"context"

	"matchago/backend/internal/pool"
)

// Score is one candidate's compatibility against the requester.
type Score struct {
	CandidateID string
	Overlap     int      // |intersection|
	Union       int      // |union|
	Jaccard     float64  // Overlap / Union, 0 when the union is empty
	Shared      []string // the intersection itself, for diagnostics
}

// Scorer ranks candidates by interest overlap. Candidate interest sets are
// fetched from the ephemeral cache in a single pipelined round trip.
type Scorer struct {
	Pool       pool.Queues
	MinShared  int
	MinJaccard float64
}

// Best scores every candidate and returns the winner, or nil when no
// candidate clears the acceptance bar (overlap >= MinShared or jaccard >=
// MinJaccard). Ties keep the first-seen candidate: only a strictly greater
// score replaces the current best. Candidates with no cached interest set
// score zero and can never win.
func (s *Scorer) Best(ctx context.Context, requester []string, candidateIDs []string) (*Score, error) {
	if len(requester) == 0 || len(candidateIDs) == 0 {
		return nil, nil
	}

	sets, err := s.Pool.BatchInterests(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	reqSet := make(map[string]struct{}, len(requester))
	for _, tag := range requester {
		reqSet[tag] = struct{}{}
	}

	var best *Score
	for _, id := range candidateIDs {
		sc := scoreSets(reqSet, sets[id])
		sc.CandidateID = id
		if best == nil || sc.Jaccard > best.Jaccard {
			best = &sc
		}
	}

	if best == nil || !s.accepts(best) {
		return nil, nil
	}
	return best, nil
}

func (s *Scorer) accepts(sc *Score) bool {
	return sc.Overlap >= s.MinShared || (sc.Overlap > 0 && sc.Jaccard >= s.MinJaccard)
}

func scoreSets(reqSet map[string]struct{}, candidate []string) Score {
	seen := make(map[string]struct{}, len(candidate))
	var sc Score
	for _, tag := range candidate {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		if _, ok := reqSet[tag]; ok {
			sc.Overlap++
			sc.Shared = append(sc.Shared, tag)
		}
	}
	sc.Union = len(reqSet) + len(seen) - sc.Overlap
	if sc.Union > 0 {
		sc.Jaccard = float64(sc.Overlap) / float64(sc.Union)
	}
	return sc
}
