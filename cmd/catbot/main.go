// Package main is the entry point for the catbot CLI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/security"
	"github.com/flemzord/catbot/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	// Compiled-in modules.
	_ "github.com/flemzord/catbot/internal/gateway"
	_ "github.com/flemzord/catbot/modules/channel/matrix"
	_ "github.com/flemzord/catbot/modules/integration/nightscout"
	_ "github.com/flemzord/catbot/modules/integration/reacts"
	_ "github.com/flemzord/catbot/modules/integration/universal"
	_ "github.com/flemzord/catbot/modules/integration/weather"
	_ "github.com/flemzord/catbot/modules/stats/sqlite"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catbot",
		Short:         "A Matrix bot that meows back",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), initCmd(), serviceCmd(), statsCmd())
	return root
}

func runParams(cfgPath, dataDir, logLevel string) app.RunParams {
	return app.RunParams{
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		LogLevel:   logLevel,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catbot %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			var last string
			for _, mod := range mods {
				ns := mod.ID.Namespace()
				if ns == last {
					continue
				}
				last = ns
				fmt.Fprintf(out, "  %s\n", ns)
				for _, m := range core.GetModulesByNamespace(ns) {
					fmt.Fprintf(out, "    %s\n", m.ID)
				}
			}
		},
	}
}

func startCmd() *cobra.Command {
	var cfgPath, dataDir, logLevel string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Connect to the homeserver and start answering",
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run(runParams(cfgPath, dataDir, logLevel))
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Persistent data directory (default $XDG_DATA_HOME/catbot)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	var show bool
	check := &cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.LoadConfig(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ids := config.Resolve(cfg)
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			if !show {
				return nil
			}
			fmt.Fprintln(out)
			return printRedacted(out, args[0])
		},
	}
	check.Flags().BoolVar(&show, "show", false, "Print the expanded configuration with secrets redacted")
	cmd.AddCommand(check)
	return cmd
}

// printRedacted prints the config file after env expansion with every
// secret-looking value masked.
func printRedacted(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded, err := config.ExpandEnv(data)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(expanded, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	security.NewRedactor().RedactMap(doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
