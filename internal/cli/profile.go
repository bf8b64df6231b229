package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *App) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage vault profiles",
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile protected by a new PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := GetSecretConfirmed("New PIN", a.out)
			if err != nil {
				return err
			}
			p, err := a.vault.CreateProfile(cmd.Context(), args[0], pin)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "profile %q created: %s\n", p.Name, p.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profs, err := a.vault.Profiles(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tBIOMETRIC")
			for _, p := range profs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
					p.ID, p.Name, p.CreatedAt.Format("2006-01-02"), p.BiometricEnrolled())
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a profile and all of its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := GetSimpleText(a.in,
				"This permanently deletes the profile and every record in it. Type the profile id to confirm:", a.out)
			if err != nil {
				return err
			}
			if answer != args[0] {
				return fmt.Errorf("confirmation does not match, nothing deleted")
			}
			if err := a.vault.DeleteProfile(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "profile deleted")
			return nil
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}
