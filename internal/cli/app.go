// Package cli implements the finvault command-line interface.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/subramanyaSgb/finvault/internal/categorize"
	"github.com/subramanyaSgb/finvault/internal/common"
	"github.com/subramanyaSgb/finvault/internal/config"
	"github.com/subramanyaSgb/finvault/internal/cryptox"
	"github.com/subramanyaSgb/finvault/internal/filex"
	"github.com/subramanyaSgb/finvault/internal/logging"
	"github.com/subramanyaSgb/finvault/internal/vault"
)

// App wires configuration, the vault and the terminal together for the
// duration of one command invocation.
type App struct {
	cfg   *config.Config
	log   zerolog.Logger
	vault *vault.Vault

	in  *bufio.Reader
	out io.Writer

	cfgFile string
}

func NewApp() *App {
	return &App{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		log: logging.Default(),
	}
}

// Execute runs the root command against ctx.
func (a *App) Execute(ctx context.Context) error {
	return a.rootCmd().ExecuteContext(ctx)
}

func (a *App) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finvault",
		Short: "finvault is an on-device encrypted personal finance vault",
		Long: `finvault keeps accounts, transactions, loans, insurance policies and
subscriptions in a locally encrypted database. Data is sealed under a key
derived from your PIN and never leaves the device unencrypted unless you
explicitly export it.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.vault != nil {
				return a.vault.Close(cmd.Context())
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default finvault.yaml in the user config dir or current dir)")

	cmd.AddCommand(
		a.profileCmd(),
		a.addCmd(),
		a.listCmd(),
		a.removeCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.changePINCmd(),
		a.biometricCmd(),
	)
	return cmd
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if err := filex.EnsureDir(cfg.DataDir); err != nil {
		return err
	}
	wrapper, err := a.deviceWrapper()
	if err != nil {
		return err
	}

	v, err := vault.Open(cmd.Context(), cfg.DSN(), vault.Options{
		AutoLock:  cfg.AutoLock,
		Wrapper:   wrapper,
		Suggester: categorize.NewKeywordSuggester(),
		KDF:       a.kdfParams(),
		Logger:    a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	a.vault = v
	return nil
}

// kdfParams maps config overrides onto the built-in cost defaults.
func (a *App) kdfParams() *cryptox.Params {
	k := a.cfg.KDF
	if k.Time == 0 && k.MemoryKiB == 0 && k.Threads == 0 {
		return nil
	}
	p := cryptox.DefaultParams
	if k.Time > 0 {
		p.Time = k.Time
	}
	if k.MemoryKiB > 0 {
		p.MemoryKiB = k.MemoryKiB
	}
	if k.Threads > 0 {
		p.Threads = k.Threads
	}
	return &p
}

// deviceWrapper loads (or creates) the device key backing the software
// biometric wrapper. Platforms with a secure element replace this with a
// hardware-backed KeyWrapper.
func (a *App) deviceWrapper() (vault.KeyWrapper, error) {
	path := filepath.Join(a.cfg.DataDir, "device.key")
	key, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key = common.GenerateRandByteArray(cryptox.KeySize)
		if err := filex.WriteArtifact(path, key); err != nil {
			return nil, fmt.Errorf("failed to store device key: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return vault.NewSoftwareKeyWrapper(key)
}

// unlock prompts for the profile's PIN and opens a session.
func (a *App) unlock(ctx context.Context, profileID string) error {
	pin, err := GetSecret("PIN", a.out)
	if err != nil {
		return err
	}
	if err := a.vault.Sessions().UnlockWithPIN(ctx, profileID, pin); err != nil {
		if errors.Is(err, common.ErrInvalidPIN) {
			return fmt.Errorf("%w (%d failed attempts)", err, a.vault.Sessions().FailureCount(profileID))
		}
		return err
	}
	return nil
}
