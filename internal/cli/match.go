package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/yoockh/techfinder/internal/app"
	"github.com/yoockh/techfinder/internal/matching"
	"github.com/yoockh/techfinder/internal/services"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match mirrored contractors against a filter and print the ranked list",
	RunE:  runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("identity", "cli", "identity to subscribe as")
	matchCmd.Flags().StringSliceP("skill", "s", nil, "required skill, repeatable (any one matches)")
	matchCmd.Flags().StringSliceP("qualification", "q", nil, "accepted qualification, repeatable")
	matchCmd.Flags().String("country", "", "country fragment")
	matchCmd.Flags().String("state", "", "state fragment")
	matchCmd.Flags().String("city", "", "city fragment")
	matchCmd.Flags().Duration("wait", 30*time.Second, "how long to wait for the first profile snapshot")
	matchCmd.Flags().Bool("steps", false, "print the per-gate funnel")
}

func specFromFlags(cmd *cobra.Command) (matching.Spec, error) {
	var spec matching.Spec
	var err error
	if spec.Skills, err = cmd.Flags().GetStringSlice("skill"); err != nil {
		return spec, err
	}
	if spec.Qualifications, err = cmd.Flags().GetStringSlice("qualification"); err != nil {
		return spec, err
	}
	if spec.Country, err = cmd.Flags().GetString("country"); err != nil {
		return spec, err
	}
	if spec.State, err = cmd.Flags().GetString("state"); err != nil {
		return spec, err
	}
	if spec.City, err = cmd.Flags().GetString("city"); err != nil {
		return spec, err
	}
	spec.Skills = trimAll(spec.Skills)
	spec.Qualifications = trimAll(spec.Qualifications)
	return spec.Normalize(), nil
}

// trimAll strips the padding users type around comma separated flag values.
func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func runMatch(cmd *cobra.Command, _ []string) error {
	spec, err := specFromFlags(cmd)
	if err != nil {
		return err
	}
	identity, _ := cmd.Flags().GetString("identity")
	wait, _ := cmd.Flags().GetDuration("wait")
	showSteps, _ := cmd.Flags().GetBool("steps")

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	store, err := a.Sessions.Acquire(ctx, identity)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := store.WaitLoaded(waitCtx); err != nil {
		return fmt.Errorf("waiting for profiles: %w", err)
	}

	out := a.Search.Evaluate(store.Snapshot(), spec)
	return printOutcome(cmd.OutOrStdout(), out, showSteps)
}

func printOutcome(w io.Writer, out *services.SearchOutcome, showSteps bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMATCH\tQUALIFICATION\tLOCATION\tSKILLS")
	for _, r := range out.Results {
		match := "-"
		if r.PercentMatching != nil {
			match = fmt.Sprintf("%d%%", *r.PercentMatching)
		}
		var qual, loc, skills string
		if r.Contractor != nil {
			qual = r.Contractor.Qualification
			loc = r.Contractor.ComposedLocation()
			skills = strings.Join(r.Contractor.SkillNames(), ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.FullName(), match, qual, loc, skills)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d contractor(s) at revision %d\n", out.Count, out.Revision)

	if !showSteps {
		return nil
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nGATE\tIN\tDROPPED\tLEFT")
	for _, s := range out.Steps {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Name, s.Initial, s.Dropped, s.Left)
	}
	return tw.Flush()
}
