package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List briefs with their asset and run counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printModes(cmd)

		briefs, err := database.NewBriefRepository(state.db).GetAll()
		if err != nil {
			return err
		}
		runs := database.NewRunRepository(state.db)
		assets := database.NewAssetRepository(state.db)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tLANGUAGES\tASSETS\tLAST RUN")
		for i := range briefs {
			b := &briefs[i]
			count, err := assets.CountForBrief(b.ID)
			if err != nil {
				return err
			}
			latest, err := runs.GetLatestForBrief(b.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d/%d\t%s\n", b.ID, b.Title, len(b.AllLanguages()),
				count, b.ExpectedAssetCount(), lastRun(latest))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		counts, err := runs.CountByStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nruns: %d queued, %d processing, %d completed, %d failed\n",
			counts[models.StatusQueued], counts[models.StatusProcessing],
			counts[models.StatusCompleted], counts[models.StatusFailed])
		return nil
	},
}

func printModes(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "AI dev mode: %s\n", onOff(state.cfg.AIDevMode))
	if state.cfg.AIDevMode {
		fmt.Fprintln(out, "  mock images and translations, no OpenAI calls (set AI_DEV_MODE=false to disable)")
	} else {
		fmt.Fprintln(out, "  OpenAI calls are made and billed (set AI_DEV_MODE=true to use mocks)")
	}
	fmt.Fprintf(out, "Outpainting: %s\n", onOff(state.cfg.UseOutpaintMethod))
	if state.cfg.UseOutpaintMethod {
		fmt.Fprintln(out, "  one square per product and language, extended to 16:9 and 9:16 (USE_OUTPAINT_METHOD=false for separate images)")
	} else {
		fmt.Fprintln(out, "  a separate image per aspect ratio (USE_OUTPAINT_METHOD=true to outpaint)")
	}
	fmt.Fprintln(out)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func lastRun(run *models.GenerationRun) string {
	if run == nil {
		return "-"
	}
	return fmt.Sprintf("#%d %s", run.RunIndex, run.Status)
}
