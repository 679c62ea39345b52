package votes

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quillforum/backend/internal/models"
)

var (
	ErrInvalidDirection = errors.New("invalid vote direction")
	ErrTargetNotFound   = errors.New("vote target not found")
)

// Direction is the value stored on a vote row.
type Direction int

const (
	Up   Direction = 1
	Down Direction = -1
)

func (d Direction) String() string {
	if d == Down {
		return "downvote"
	}
	return "upvote"
}

// ParseDirection maps the wire value to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "upvote":
		return Up, nil
	case "downvote":
		return Down, nil
	default:
		return 0, ErrInvalidDirection
	}
}

// TargetRef names a votable thing. Exactly one kind is ever set; posts and
// comments share the ledger but never an id space.
type TargetRef struct {
	Kind models.TargetKind
	ID   int
}

func PostTarget(id int) TargetRef {
	return TargetRef{Kind: models.TargetPost, ID: id}
}

func CommentTarget(id int) TargetRef {
	return TargetRef{Kind: models.TargetComment, ID: id}
}

// Outcome reports which of the three legal transitions a cast performed.
type Outcome int

const (
	OutcomeAdded Outcome = iota
	OutcomeRemoved
	OutcomeChanged
)

// Store owns the vote ledger. Nothing else writes vote rows.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Cast applies the three-way toggle for (voter, target):
// no existing vote inserts one, the same direction removes it, the opposite
// direction flips it in place. The insert is an upsert against the composite
// unique index, so two racing first votes resolve to one row with the last
// writer's direction.
func (s *Store) Cast(voterID int, target TargetRef, direction Direction) (Outcome, error) {
	if direction != Up && direction != Down {
		return 0, ErrInvalidDirection
	}
	if err := s.targetExists(target); err != nil {
		return 0, err
	}

	var existing models.Vote
	err := s.db.
		Where("voter_id = ? AND target_kind = ? AND target_id = ?", voterID, target.Kind, target.ID).
		First(&existing).Error

	switch {
	case err == nil && Direction(existing.Direction) == direction:
		if err := s.db.Delete(&existing).Error; err != nil {
			return 0, err
		}
		return OutcomeRemoved, nil

	case err == nil:
		if err := s.db.Model(&existing).Update("direction", int(direction)).Error; err != nil {
			return 0, err
		}
		return OutcomeChanged, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := models.Vote{
			VoterID:    voterID,
			TargetKind: target.Kind,
			TargetID:   target.ID,
			Direction:  int(direction),
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voter_id"}, {Name: "target_kind"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).Create(&vote).Error
		if err != nil {
			return 0, err
		}
		return OutcomeAdded, nil

	default:
		return 0, err
	}
}

func (s *Store) targetExists(target TargetRef) error {
	var count int64
	var err error

	switch target.Kind {
	case models.TargetPost:
		err = s.db.Model(&models.Post{}).Where("id = ?", target.ID).Count(&count).Error
	case models.TargetComment:
		err = s.db.Model(&models.Comment{}).Where("id = ?", target.ID).Count(&count).Error
	default:
		return ErrTargetNotFound
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrTargetNotFound
	}
	return nil
}
