// Copyright (c) 2026 NERSC
// sshproxy - MFA-backed SSH key and certificate issuance client
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for sshproxy using the Cobra
// library. The root command performs a single issuance run; the core
// receives the flags as already-resolved configuration values and every
// failure class is reported through a distinct process exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sleak-lbl/NERSC-MFA/buildvars"
	"github.com/sleak-lbl/NERSC-MFA/internal/config"
	"github.com/sleak-lbl/NERSC-MFA/internal/core"
	"github.com/sleak-lbl/NERSC-MFA/internal/i18n"
	"github.com/sleak-lbl/NERSC-MFA/internal/logging"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

var (
	scope      string
	outputPath string
	verbose    bool
)

// appConfig holds the resolved configuration after PersistentPreRunE.
var appConfig config.Config

// DefaultServerURL is the issuance endpoint used when neither config nor
// flags name one.
const DefaultServerURL = "sshproxy.nersc.gov"

func setupDefaultServices(cmd *cobra.Command) error {
	logging.SetVerbose(verbose)

	optional_config_path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	defaults := map[string]any{
		"user":       currentUsername(),
		"server_url": DefaultServerURL,
		"ssh_dir":    "",
		"language":   "en",
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, optional_config_path)
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		// First run, or the config file was deleted. Create a default one.
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			logging.Warnf("%s", i18n.T("cli.warn_write_config", writeErr))
		}
	} else if err != nil {
		return fmt.Errorf("%s", i18n.T("cli.error_load_config", err))
	}

	if appConfig.User == "" {
		appConfig.User = defaults["user"].(string)
	}
	if appConfig.ServerURL == "" {
		appConfig.ServerURL = defaults["server_url"].(string)
	}
	if appConfig.Language == "" {
		appConfig.Language = defaults["language"].(string)
	}

	// The --url flag maps onto the server_url config key.
	if cmd.Flags().Changed("url") {
		if v, err := cmd.Flags().GetString("url"); err == nil && v != "" {
			appConfig.ServerURL = v
		}
	}

	i18n.Init(appConfig.Language)
	return nil
}

// resolveBuildVersion prefers link-time buildvars over the package-level
// defaults.
func resolveBuildVersion() (string, string, string) {
	v := buildvars.VersionOrDefault(version)
	c := gitCommit
	if buildvars.Commit != "" {
		c = buildvars.Commit
	}
	d := buildDate
	if buildvars.Date != "" {
		d = buildvars.Date
	}
	return v, c, d
}

// currentUsername resolves the local account name, falling back to $USER.
func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command. Tests create
// fresh instances for isolation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sshproxy",
		Short: "sshproxy fetches a short-lived SSH key and certificate using MFA.",
		Long: `sshproxy authenticates you to the key-issuing service with your
password+OTP, retrieves a short-lived SSH private key with its signed
certificate, and installs both into your SSH directory with owner-only
permissions.

` + i18n.T("cli.exit_codes"),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupDefaultServices(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := core.Run(context.Background(), core.Options{
				Username:   appConfig.User,
				Scope:      scope,
				OutputPath: outputPath,
				ServerURL:  appConfig.ServerURL,
				SSHDir:     appConfig.SSHDir,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", successMessage(res, scope))
			return nil
		},
	}

	v, c, d := resolveBuildVersion()
	compositeVersion := v
	if c != "" && c != "dev" {
		compositeVersion = compositeVersion + " (" + c + ")"
	}
	if d != "" {
		compositeVersion = compositeVersion + " built: " + d
	}
	cmd.Version = compositeVersion

	cmd.Flags().StringP("user", "u", "", "account name to authenticate as (default: local username)")
	cmd.Flags().StringP("url", "U", "", "issuance server hostname or URL")
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "credential scope; also names the installed key")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "install the private key at this exact path")
	cmd.Flags().String("config", "", "path to an alternate config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// successMessage reports the installed key and its validity window; when a
// scope was requested it is named so the user knows which credential this is.
func successMessage(res *core.Result, scope string) string {
	if scope != "" {
		return i18n.T("run.success_scope", res.KeyPath, scope, res.ValiditySummary)
	}
	return i18n.T("run.success", res.KeyPath, res.ValiditySummary)
}

// Execute runs the CLI and returns the process exit code. Every failure
// prints a localized one-line cause to stderr first; a malformed server
// response is additionally echoed in full for diagnosis.
func Execute() int {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return core.ExitOK
	}
	reportFailure(err)
	return core.ExitCode(err)
}

func reportFailure(err error) {
	var (
		authErr     *core.AuthenticationError
		protocolErr *core.ProtocolError
	)
	code := core.ExitCode(err)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, i18n.T("run.interrupted"))
	case errors.As(err, &authErr):
		fmt.Fprintln(os.Stderr, i18n.T("run.auth_failed", authErr.Message))
	case errors.As(err, &protocolErr):
		fmt.Fprintln(os.Stderr, i18n.T("run.malformed"))
		fmt.Fprint(os.Stderr, protocolErr.Content)
	case code == core.ExitTransport:
		fmt.Fprintln(os.Stderr, i18n.T("run.transport_error", err))
	case code == core.ExitInstall:
		fmt.Fprintln(os.Stderr, i18n.T("run.install_error", err))
	default:
		fmt.Fprintln(os.Stderr, err)
	}
}
