package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subramanyaSgb/finvault/internal/backup"
	"github.com/subramanyaSgb/finvault/internal/filex"
)

func (a *App) exportCmd() *cobra.Command {
	var profileID, mode, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a profile to a backup artifact",
		Long: `Modes:
  encrypted  password-protected restorable artifact (default)
  plain      unencrypted restorable artifact, explicit choice
  csv        transactions only, spreadsheet use, not restorable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.unlock(cmd.Context(), profileID); err != nil {
				return err
			}
			exporter := backup.NewExporter(a.vault.Store(), a.log)

			var data []byte
			var err error
			switch mode {
			case "encrypted":
				var password string
				password, err = GetSecretConfirmed("Backup password", a.out)
				if err != nil {
					return err
				}
				data, err = exporter.ExportEncrypted(cmd.Context(), profileID, password)
			case "plain":
				data, err = exporter.ExportPlain(cmd.Context(), profileID)
			case "csv":
				data, err = exporter.ExportTransactionsCSV(cmd.Context(), profileID)
			default:
				return fmt.Errorf("unknown export mode %q", mode)
			}
			if err != nil {
				return err
			}

			if err := filex.WriteArtifact(out, data); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	cmd.Flags().StringVar(&mode, "mode", "encrypted", "encrypted|plain|csv")
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *App) importCmd() *cobra.Command {
	var profileID, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a backup artifact into a profile",
		Long: `Merges the artifact additively: entities whose id already exists
locally are skipped, local data always wins. Encrypted artifacts prompt
for the backup password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if err := a.unlock(cmd.Context(), profileID); err != nil {
				return err
			}

			password := ""
			if backup.IsEncrypted(data) {
				password, err = GetSecret("Backup password", a.out)
				if err != nil {
					return err
				}
			}

			res, err := backup.NewImporter(a.vault.Store(), a.log).
				Import(cmd.Context(), profileID, data, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "imported %d, skipped %d duplicates\n", res.ItemsImported, res.Skipped)
			for _, item := range res.Errors {
				fmt.Fprintf(a.out, "  warning: %s: %s\n", item.ID, item.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	cmd.Flags().StringVar(&file, "file", "", "artifact path")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
