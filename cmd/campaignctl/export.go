package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/campaign-studio/internal/database"
	"github.com/AndrewDonelson/campaign-studio/pkg/archive"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <brief-id>",
	Short: "Write the assets of a brief to a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brief, err := loadBrief(args[0])
		if err != nil {
			return err
		}
		assets, err := database.NewAssetRepository(state.db).ListForBrief(brief.ID)
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			return fmt.Errorf("no assets found for brief %d", brief.ID)
		}

		out := exportOutput
		if out == "" {
			out = brief.Title + "_assets.zip"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := archive.BuildBriefArchive(f, brief, assets, state.cfg.StoragePath); err != nil {
			f.Close()
			os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d assets to %s\n", len(assets), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "archive path (default <title>_assets.zip)")
}
