package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/catbot/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// wizardAnswers is what `catbot init` asks for.
type wizardAnswers struct {
	Homeserver   string
	AccessToken  string
	Rooms        string
	Scope        string
	Integrations []string
	Gateway      bool
}

// initFile is the generated config layout. Field order is the order the
// keys are written.
type initFile struct {
	Version string         `yaml:"version"`
	Log     map[string]any `yaml:"log"`
	Cron    map[string]any `yaml:"cron"`
	Modules map[string]any `yaml:"modules"`
}

const tokenEnvRef = "${MATRIX_ACCESS_TOKEN}"

func initCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = app.DefaultConfigPath()
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			answers := wizardAnswers{Scope: "base", Integrations: []string{"reacts"}}
			if err := runWizard(&answers); err != nil {
				return err
			}

			data, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nRun `catbot config check %s` to validate it.\n", output, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the config (default $XDG_CONFIG_HOME/catbot/catbot.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runWizard(a *wizardAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Homeserver URL").
				Placeholder("https://matrix.example.org").
				Value(&a.Homeserver).
				Validate(validateHomeserver),
			huh.NewInput().
				Title("Access token").
				Description("Leave empty to read $MATRIX_ACCESS_TOKEN at startup.").
				EchoMode(huh.EchoModePassword).
				Value(&a.AccessToken),
			huh.NewInput().
				Title("Rooms").
				Description("Comma-separated room IDs to serve. Empty serves every joined room.").
				Value(&a.Rooms),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Command set").
				Options(
					huh.NewOption("Base (about, help, version)", "base"),
					huh.NewOption("Admin (adds stats, uptime)", "admin"),
				).
				Value(&a.Scope),
			huh.NewMultiSelect[string]().
				Title("Integrations").
				Options(
					huh.NewOption("Emoji reactions", "reacts"),
					huh.NewOption("Weather (wttr.in)", "weather"),
					huh.NewOption("Nightscout glucose", "nightscout"),
				).
				Value(&a.Integrations),
			huh.NewConfirm().
				Title("Enable the HTTP gateway (health, metrics, stats API)?").
				Value(&a.Gateway),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("init aborted")
		}
		return err
	}
	return nil
}

func validateHomeserver(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

// renderConfig turns wizard answers into a config file.
func renderConfig(a wizardAnswers) ([]byte, error) {
	token := strings.TrimSpace(a.AccessToken)
	if token == "" {
		token = tokenEnvRef
	}
	matrix := map[string]any{
		"homeserver":   strings.TrimSpace(a.Homeserver),
		"access_token": token,
	}
	var rooms []string
	for _, r := range strings.Split(a.Rooms, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	if len(rooms) > 0 {
		matrix["rooms"] = rooms
	}

	modules := map[string]any{
		"channel.matrix":        matrix,
		"stats.sqlite":          map[string]any{},
		"integration.universal": map[string]any{"scope": a.Scope},
	}
	for _, name := range a.Integrations {
		switch name {
		case "reacts", "weather", "nightscout":
			modules["integration."+name] = map[string]any{}
		default:
			return nil, fmt.Errorf("unknown integration %q", name)
		}
	}
	if a.Gateway {
		modules["gateway.http"] = map[string]any{
			"bind": "127.0.0.1:8080",
			"auth": map[string]any{"bearer_token": "${CATBOT_GATEWAY_TOKEN:-}"},
		}
	}

	return yaml.Marshal(initFile{
		Version: "1",
		Log:     map[string]any{"level": "info", "format": "text"},
		Cron:    map[string]any{"stats_report": "@daily"},
		Modules: modules,
	})
}
