package store

import (
	"path/filepath"
	"testing"

	"gorm.io/datatypes"
)

func open(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "knowledge.db"))

	if err != nil {
		t.Fatalf("Open() = %v", err)
	}

	return s
}

func TestInsertClaim(t *testing.T) {
	s := open(t)

	id, err := s.InsertClaim("default", "the sky is blue", "physics.txt")

	if err != nil {
		t.Fatalf("InsertClaim() = %v", err)
	}

	claim, err := s.ClaimByID(id)

	if err != nil {
		t.Fatalf("ClaimByID() = %v", err)
	}

	if claim.Status != StatusUnreviewed {
		t.Errorf("new claim status = %q, want %q", claim.Status, StatusUnreviewed)
	}

	if claim.BeliefScore != 0 || claim.CurrentWinner {
		t.Errorf("new claim has belief state: score=%v winner=%v", claim.BeliefScore, claim.CurrentWinner)
	}
}

func TestPromoteDemote(t *testing.T) {
	s := open(t)

	id, _ := s.InsertClaim("line-1", "water boils at 100C", "chem.txt")

	if err := s.Promote(id); err != nil {
		t.Fatalf("Promote() = %v", err)
	}

	claim, _ := s.ClaimByID(id)

	if claim.Status != StatusPromoted || !claim.CurrentWinner || claim.BeliefScore != 1 {
		t.Errorf("after promote: status=%q winner=%v score=%v", claim.Status, claim.CurrentWinner, claim.BeliefScore)
	}

	if err := s.Demote(id); err != nil {
		t.Fatalf("Demote() = %v", err)
	}

	claim, _ = s.ClaimByID(id)

	if claim.Status != StatusDemoted || claim.CurrentWinner || claim.BeliefScore != 0 {
		t.Errorf("after demote: status=%q winner=%v score=%v", claim.Status, claim.CurrentWinner, claim.BeliefScore)
	}
}

func TestPromoteMissing(t *testing.T) {
	s := open(t)

	if err := s.Promote(42); err == nil {
		t.Error("expected error for missing claim")
	}
}

func TestClaimsByStatus(t *testing.T) {
	s := open(t)

	a, _ := s.InsertClaim("l1", "claim a", "a.txt")
	s.InsertClaim("l1", "claim b", "b.txt")
	s.InsertClaim("l2", "claim c", "c.txt")

	s.Promote(a)

	promoted, err := s.ClaimsByStatus(StatusPromoted)

	if err != nil {
		t.Fatalf("ClaimsByStatus() = %v", err)
	}

	if len(promoted) != 1 || promoted[0].Text != "claim a" {
		t.Errorf("promoted = %+v", promoted)
	}

	unreviewed, _ := s.ClaimsByStatus(StatusUnreviewed)

	if len(unreviewed) != 2 {
		t.Errorf("unreviewed count = %d, want 2", len(unreviewed))
	}

	all, _ := s.ClaimsByStatus("all")

	if len(all) != 3 {
		t.Errorf("all count = %d, want 3", len(all))
	}

	if _, err := s.ClaimsByStatus("bogus"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestWinners(t *testing.T) {
	s := open(t)

	a, _ := s.InsertClaim("l1", "claim a", "a.txt")
	b, _ := s.InsertClaim("l2", "claim b", "b.txt")
	s.InsertClaim("l3", "claim c", "c.txt")

	s.Promote(a)
	s.Promote(b)
	s.Demote(b)

	winners, err := s.Winners()

	if err != nil {
		t.Fatalf("Winners() = %v", err)
	}

	if len(winners) != 1 || winners[0].Text != "claim a" {
		t.Errorf("winners = %+v", winners)
	}
}

func TestVerdictHistory(t *testing.T) {
	s := open(t)

	a, _ := s.InsertClaim("line-9", "first claim", "src.txt")
	b, _ := s.InsertClaim("line-9", "second claim", "src.txt")
	s.InsertClaim("other", "unrelated", "src.txt")

	if err := s.LogVerdict(a, "true"); err != nil {
		t.Fatalf("LogVerdict() = %v", err)
	}

	if err := s.LogVerdict(b, "false"); err != nil {
		t.Fatalf("LogVerdict() = %v", err)
	}

	if err := s.LogVerdict(a, "banana"); err == nil {
		t.Error("expected error for invalid verdict")
	}

	if err := s.LogVerdict(999, "true"); err == nil {
		t.Error("expected error for missing claim")
	}

	history, err := s.VerdictHistory("line-9")

	if err != nil {
		t.Fatalf("VerdictHistory() = %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("history count = %d, want 2", len(history))
	}

	if history[0].ClaimText != "first claim" || history[0].Verdict != "true" {
		t.Errorf("history[0] = %+v", history[0])
	}
}

func TestSaveDocument(t *testing.T) {
	s := open(t)

	doc := &Document{
		Name:       "book.epub",
		Title:      "A Book",
		Checksum:   "abc",
		ChunkCount: 12,
		Metadata:   datatypes.JSONMap{"language": "en"},
	}

	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument() = %v", err)
	}

	doc2 := &Document{Name: "book.epub", Title: "A Book, revised", Checksum: "def", ChunkCount: 14}

	if err := s.SaveDocument(doc2); err != nil {
		t.Fatalf("SaveDocument() update = %v", err)
	}

	docs, err := s.Documents()

	if err != nil {
		t.Fatalf("Documents() = %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("documents count = %d, want 1", len(docs))
	}

	if docs[0].Title != "A Book, revised" || docs[0].ChunkCount != 14 {
		t.Errorf("document not updated: %+v", docs[0])
	}
}
