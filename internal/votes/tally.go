package votes

import "github.com/quillforum/backend/internal/models"

// Snapshot is computed fresh from the ledger on every read; counts are never
// denormalized onto posts or comments.
type Snapshot struct {
	Upvotes    int
	Downvotes  int
	Net        int
	ViewerVote *Direction
}

// Tally resolves a single target. Reads are not snapshot-isolated against
// concurrent casts; a racing vote from another user may or may not be counted.
func (s *Store) Tally(target TargetRef, viewerID *int) (Snapshot, error) {
	tallies, err := s.TallyBatch([]TargetRef{target}, viewerID)
	if err != nil {
		return Snapshot{}, err
	}
	return tallies[target], nil
}

// TallyBatch aggregates counts for a set of targets with one grouped query
// per target kind, plus one viewer-vote lookup when a viewer is present.
func (s *Store) TallyBatch(targets []TargetRef, viewerID *int) (map[TargetRef]Snapshot, error) {
	out := make(map[TargetRef]Snapshot, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	byKind := make(map[models.TargetKind][]int)
	for _, t := range targets {
		out[t] = Snapshot{}
		byKind[t.Kind] = append(byKind[t.Kind], t.ID)
	}

	type countRow struct {
		TargetKind string
		TargetID   int
		Upvotes    int
		Downvotes  int
	}

	for kind, ids := range byKind {
		var rows []countRow
		err := s.db.Model(&models.Vote{}).
			Select("target_kind, target_id, " +
				"SUM(CASE WHEN direction = 1 THEN 1 ELSE 0 END) AS upvotes, " +
				"SUM(CASE WHEN direction = -1 THEN 1 ELSE 0 END) AS downvotes").
			Where("target_kind = ? AND target_id IN ?", kind, ids).
			Group("target_kind, target_id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			key := TargetRef{Kind: models.TargetKind(r.TargetKind), ID: r.TargetID}
			out[key] = Snapshot{
				Upvotes:   r.Upvotes,
				Downvotes: r.Downvotes,
				Net:       r.Upvotes - r.Downvotes,
			}
		}
	}

	if viewerID != nil {
		for kind, ids := range byKind {
			var viewerVotes []models.Vote
			err := s.db.
				Where("voter_id = ? AND target_kind = ? AND target_id IN ?", *viewerID, kind, ids).
				Find(&viewerVotes).Error
			if err != nil {
				return nil, err
			}
			for _, v := range viewerVotes {
				key := TargetRef{Kind: v.TargetKind, ID: v.TargetID}
				snap := out[key]
				direction := Direction(v.Direction)
				snap.ViewerVote = &direction
				out[key] = snap
			}
		}
	}

	return out, nil
}
