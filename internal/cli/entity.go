package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/subramanyaSgb/finvault/internal/models"
)

const kindArgHelp = "account|transaction|loan|insurance|subscription"

func parseKind(arg string) (models.Kind, error) {
	k := models.Kind(arg)
	switch k {
	case models.KindAccount, models.KindTransaction, models.KindLoan,
		models.KindInsurance, models.KindSubscription:
		return k, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q, expected %s", arg, kindArgHelp)
	}
}

func (a *App) addCmd() *cobra.Command {
	var profileID, data string
	cmd := &cobra.Command{
		Use:   "add <kind>",
		Short: "Add an entity (" + kindArgHelp + ") from JSON",
		Long:  "Reads the entity as a JSON document from --data, or from stdin when --data is omitted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			raw := []byte(data)
			if data == "" {
				raw, err = io.ReadAll(a.in)
				if err != nil {
					return err
				}
			}
			entity, err := (models.Envelope{Kind: kind, Details: raw}).Unwrap()
			if err != nil {
				return fmt.Errorf("invalid %s document: %w", kind, err)
			}

			if err := a.unlock(cmd.Context(), profileID); err != nil {
				return err
			}
			id, err := a.vault.Store().Create(cmd.Context(), profileID, entity)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s created: %s\n", kind, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	cmd.Flags().StringVar(&data, "data", "", "entity JSON (stdin when omitted)")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List entities of one kind as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			if err := a.unlock(cmd.Context(), profileID); err != nil {
				return err
			}
			envs, err := a.vault.Store().List(cmd.Context(), profileID, kind)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(envs)
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func (a *App) removeCmd() *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "remove <entity-id>",
		Short: "Delete an entity by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlock(cmd.Context(), profileID); err != nil {
				return err
			}
			if err := a.vault.Store().Delete(cmd.Context(), profileID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}
