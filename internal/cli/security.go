package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) changePINCmd() *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "change-pin",
		Short: "Rotate a profile's PIN, re-sealing every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oldPIN, err := GetSecret("Current PIN", a.out)
			if err != nil {
				return err
			}
			newPIN, err := GetSecretConfirmed("New PIN", a.out)
			if err != nil {
				return err
			}
			if err := a.vault.Sessions().ChangePIN(cmd.Context(), profileID, oldPIN, newPIN); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "PIN changed, all records re-sealed")
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "profile id")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func (a *App) biometricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biometric",
		Short: "Manage biometric unlock",
	}

	var enrollProfile string
	enroll := &cobra.Command{
		Use:   "enroll",
		Short: "Enable biometric unlock for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bio := a.vault.Biometric()
			if bio == nil {
				return errors.New("biometric unlock is not available on this device")
			}
			pin, err := GetSecret("PIN", a.out)
			if err != nil {
				return err
			}
			if err := bio.Enroll(cmd.Context(), enrollProfile, pin); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "biometric unlock enrolled")
			return nil
		},
	}
	enroll.Flags().StringVar(&enrollProfile, "profile", "", "profile id")
	_ = enroll.MarkFlagRequired("profile")

	var disableProfile string
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Remove the biometric wrapper (PIN unlock is unaffected)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bio := a.vault.Biometric()
			if bio == nil {
				return errors.New("biometric unlock is not available on this device")
			}
			if err := bio.Disable(cmd.Context(), disableProfile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "biometric unlock disabled")
			return nil
		},
	}
	disable.Flags().StringVar(&disableProfile, "profile", "", "profile id")
	_ = disable.MarkFlagRequired("profile")

	cmd.AddCommand(enroll, disable)
	return cmd
}
