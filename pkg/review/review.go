package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/claimkit/claimkit/pkg/cli"
	"github.com/claimkit/claimkit/pkg/store"

	"github.com/charmbracelet/huh"
)

// Run walks through all unreviewed claims and records a verdict for each.
// A true verdict promotes the claim, false demotes it, unsure only logs.
func Run(ctx context.Context, s *store.Store) error {
	claims, err := s.ClaimsByStatus(store.StatusUnreviewed)

	if err != nil {
		return err
	}

	if len(claims) == 0 {
		cli.Info("No unreviewed claims.")
		return nil
	}

	cli.Infof("%d claims to review.", len(claims))

	for n, claim := range claims {
		if err := ctx.Err(); err != nil {
			return err
		}

		var verdict string

		err := huh.NewSelect[string]().
			Title(fmt.Sprintf("[%d/%d] %s", n+1, len(claims), claim.Text)).
			Description("Source: " + claim.SourceRef).
			Options(
				huh.NewOption("true", "true"),
				huh.NewOption("false", "false"),
				huh.NewOption("unsure", "unsure"),
				huh.NewOption("skip", "skip"),
			).
			Value(&verdict).
			Run()

		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}

		if err != nil {
			return err
		}

		if verdict == "skip" {
			continue
		}

		if err := Apply(s, claim.ID, verdict); err != nil {
			return err
		}
	}

	return nil
}

// Apply records a verdict and updates the claim's belief state.
func Apply(s *store.Store, claimID uint, verdict string) error {
	switch verdict {
	case "true":
		if err := s.Promote(claimID); err != nil {
			return err
		}

	case "false":
		if err := s.Demote(claimID); err != nil {
			return err
		}

	case "unsure":

	default:
		return fmt.Errorf("invalid verdict: %s", verdict)
	}

	return s.LogVerdict(claimID, verdict)
}
