package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/campaign-studio/internal/briefs"
)

var referencePath string

var importCmd = &cobra.Command{
	Use:   "import <brief-file>",
	Short: "Create a brief from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var ref *briefs.Reference
		if referencePath != "" {
			f, err := os.Open(referencePath)
			if err != nil {
				return err
			}
			defer f.Close()
			ref = &briefs.Reference{Name: filepath.Base(referencePath), Data: f}
		}

		store := briefs.NewStore(state.db, state.cfg.StoragePath)
		brief, err := store.Import(filepath.Base(args[0]), content, ref)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created brief %d %q: %d products, %d languages, %d assets expected\n",
			brief.ID, brief.Title, brief.ProductCount(), len(brief.AllLanguages()), brief.ExpectedAssetCount())
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&referencePath, "reference", "r", "", "reference image used instead of generated scenes")
}
