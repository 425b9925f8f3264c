package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
)

const (
	StatusUnreviewed = "unreviewed"
	StatusPromoted   = "promoted"
	StatusDemoted    = "demoted"
)

// Claim is a single assertion extracted from a document. Claims sharing a
// line ID compete for the same topic; the belief state tracks which one is
// currently believed.
type Claim struct {
	gorm.Model

	LineID    string
	Text      string
	SourceRef string

	BeliefScore   float64
	CurrentWinner bool
	Status        string
}

// Verdict records a human judgment over a claim.
type Verdict struct {
	gorm.Model

	ClaimID uint
	Verdict string
}

// Document records an ingested source file.
type Document struct {
	gorm.Model

	Name        string
	Title       string
	Description string
	Checksum    string
	ChunkCount  int

	Metadata datatypes.JSONMap
}

// HistoryEntry is one row of the verdict history for a claim line.
type HistoryEntry struct {
	VerdictID uint
	ClaimID   uint
	ClaimText string
	Verdict   string
	CreatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(gormlite.Open(path), &gorm.Config{})

	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Claim{}, &Verdict{}, &Document{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// InsertClaim stores a new claim with the unreviewed status and returns its ID.
func (s *Store) InsertClaim(lineID, text, sourceRef string) (uint, error) {
	claim := Claim{
		LineID:    lineID,
		Text:      text,
		SourceRef: sourceRef,
		Status:    StatusUnreviewed,
	}

	if result := s.db.Create(&claim); result.Error != nil {
		return 0, result.Error
	}

	return claim.ID, nil
}

func (s *Store) ClaimByID(id uint) (*Claim, error) {
	var claim Claim

	if result := s.db.First(&claim, id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("claim %d not found", id)
		}

		return nil, result.Error
	}

	return &claim, nil
}

// ClaimsByStatus returns claims filtered by status. "all" or "" returns
// every claim.
func (s *Store) ClaimsByStatus(status string) ([]Claim, error) {
	var claims []Claim

	query := s.db.Order("id")

	switch status {
	case "", "all":
	case StatusPromoted, StatusDemoted, StatusUnreviewed:
		query = query.Where("status = ?", status)
	default:
		return nil, fmt.Errorf("unknown status: %s", status)
	}

	if result := query.Find(&claims); result.Error != nil {
		return nil, result.Error
	}

	return claims, nil
}

// Winners returns the claims currently believed for their line.
func (s *Store) Winners() ([]Claim, error) {
	var claims []Claim

	if result := s.db.Where("current_winner = ?", true).Order("id").Find(&claims); result.Error != nil {
		return nil, result.Error
	}

	return claims, nil
}

// Promote marks a claim as the current winner and raises its belief score.
func (s *Store) Promote(id uint) error {
	return s.adjust(id, true, StatusPromoted, "belief_score + 1")
}

// Demote clears the winner flag and lowers the belief score.
func (s *Store) Demote(id uint) error {
	return s.adjust(id, false, StatusDemoted, "belief_score - 1")
}

func (s *Store) adjust(id uint, winner bool, status, scoreExpr string) error {
	result := s.db.Model(&Claim{}).Where("id = ?", id).Updates(map[string]any{
		"current_winner": winner,
		"status":         status,
		"belief_score":   gorm.Expr(scoreExpr),
	})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("claim %d not found", id)
	}

	return nil
}

// LogVerdict appends a verdict to the history of a claim.
func (s *Store) LogVerdict(claimID uint, verdict string) error {
	switch verdict {
	case "true", "false", "unsure":
	default:
		return fmt.Errorf("invalid verdict: %s", verdict)
	}

	if _, err := s.ClaimByID(claimID); err != nil {
		return err
	}

	result := s.db.Create(&Verdict{ClaimID: claimID, Verdict: verdict})
	return result.Error
}

// VerdictHistory returns all verdicts recorded for claims on a line, oldest
// first.
func (s *Store) VerdictHistory(lineID string) ([]HistoryEntry, error) {
	var entries []HistoryEntry

	result := s.db.Table("verdicts").
		Select("verdicts.id AS verdict_id, verdicts.claim_id, claims.text AS claim_text, verdicts.verdict, verdicts.created_at").
		Joins("JOIN claims ON claims.id = verdicts.claim_id").
		Where("claims.line_id = ?", lineID).
		Order("verdicts.created_at").
		Scan(&entries)

	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

// SaveDocument inserts or refreshes the record of an ingested file,
// matching on the source file name.
func (s *Store) SaveDocument(doc *Document) error {
	var existing Document

	result := s.db.Where("name = ?", doc.Name).First(&existing)

	if result.Error == nil {
		doc.ID = existing.ID
		return s.db.Save(doc).Error
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	return s.db.Create(doc).Error
}

func (s *Store) Documents() ([]Document, error) {
	var docs []Document

	if result := s.db.Order("id").Find(&docs); result.Error != nil {
		return nil, result.Error
	}

	return docs, nil
}
