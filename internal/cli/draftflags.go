package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/tripplan/internal/model"
	"github.com/rcliao/tripplan/internal/workbench"
)

func addDraftFlags(cmd *cobra.Command) {
	cmd.Flags().String("dest", "", "Destination, e.g. \"Paris, France\"")
	cmd.Flags().String("start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "End date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringArrayP("interest", "i", nil, "Interest (repeatable)")
}

// applyDraftFlags copies the flags the user set onto the open draft.
func applyDraftFlags(cmd *cobra.Command, wb *workbench.Workbench) error {
	if cmd.Flags().Changed("dest") {
		dest, _ := cmd.Flags().GetString("dest")
		if err := wb.SetDestination(dest); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name string
		set  func(model.Date) error
	}{
		{"start", wb.SetStartDate},
		{"end", wb.SetEndDate},
	} {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		raw, _ := cmd.Flags().GetString(f.name)
		d, err := model.ParseDate(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.name, err)
		}
		if err := f.set(d); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("interest") {
		interests, _ := cmd.Flags().GetStringArray("interest")
		if err := replaceInterests(wb, interests); err != nil {
			return err
		}
	}
	return nil
}

// replaceInterests rewrites the draft's interest slots to exactly interests,
// keeping one blank slot when interests is empty.
func replaceInterests(wb *workbench.Workbench, interests []string) error {
	d, ok := wb.State().(*workbench.Drafting)
	if !ok {
		return fmt.Errorf("not editing a draft")
	}
	for n := len(d.Draft.Interests); n > 1; n-- {
		if err := wb.RemoveInterest(n - 1); err != nil {
			return err
		}
	}
	if err := wb.SetInterest(0, ""); err != nil {
		return err
	}
	for i, v := range interests {
		if i > 0 {
			if err := wb.AddInterest(); err != nil {
				return err
			}
		}
		if err := wb.SetInterest(i, v); err != nil {
			return err
		}
	}
	return nil
}

// generateAndMaybeSave runs generate, then save when save is set. It returns
// the preview and, if saved, the stored record.
func generateAndMaybeSave(ctx context.Context, wb *workbench.Workbench, save bool) (*model.Preview, *model.Itinerary, error) {
	op, err := wb.Generate(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := wb.Wait(ctx, op); err != nil {
		return nil, nil, err
	}
	preview := wb.State().(*workbench.Drafting).Preview
	if !save {
		return preview, nil, nil
	}

	op, err = wb.Save(ctx)
	if err != nil {
		return preview, nil, err
	}
	if err := wb.Wait(ctx, op); err != nil {
		return preview, nil, err
	}
	rec, _ := wb.LastSaved()
	return preview, &rec, nil
}

type draftResult struct {
	Preview *model.Preview   `json:"preview"`
	Saved   *model.Itinerary `json:"saved,omitempty"`
}
