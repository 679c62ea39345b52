package models

import "time"

// TargetKind discriminates what a vote points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Vote - one row per (voter, target). The composite unique index is the
// ledger's core constraint; the insert path upserts against it so a racing
// double submit collapses to a single row.
type Vote struct {
	ID         int        `gorm:"primaryKey" json:"id"`
	VoterID    int        `gorm:"not null;uniqueIndex:idx_votes_voter_target" json:"voter_id"`
	TargetKind TargetKind `gorm:"size:16;not null;uniqueIndex:idx_votes_voter_target" json:"target_kind"`
	TargetID   int        `gorm:"not null;uniqueIndex:idx_votes_voter_target" json:"target_id"`
	Direction  int        `gorm:"not null" json:"direction"` // 1 = upvote, -1 = downvote
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
