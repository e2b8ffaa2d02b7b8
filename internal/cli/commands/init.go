package commands

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/restorm/internal/cli/ui"
	"github.com/conduit-lang/restorm/internal/config"
)

type initOptions struct {
	yes      bool
	force    bool
	site     string
	format   string
	auth     string
	token    string
	user     string
	password string
	cache    string
}

func newInitCommand(global *globalOptions) *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a restorm.yaml config file",
		Long: `Create a restorm.yaml config file.

Without --yes the command asks for the site, wire format, authentication
and cache backend. Resource declarations are added to the file by hand.`,
		Example: `  restorm init
  restorm init --yes --site https://api.example.com --auth bearer --token s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := global.configPath
			if path == "" {
				path = config.FileName
			}
			if _, err := os.Stat(path); err == nil && !opts.force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if !opts.yes {
				if err := opts.ask(); err != nil {
					return err
				}
			}

			if opts.site == "" {
				return fmt.Errorf("%w: site is not set", config.ErrInvalidConfig)
			}
			cfg := opts.config()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Wrote %s", path), global.noColor)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.yes, "yes", "y", false, "skip prompts and use flag values")
	f.BoolVar(&opts.force, "force", false, "overwrite an existing file")
	f.StringVar(&opts.site, "site", "", "base URL of the remote service")
	f.StringVar(&opts.format, "format", "json", "wire format: json or xml")
	f.StringVar(&opts.auth, "auth", "none", "authentication: none, basic, bearer or jwt")
	f.StringVar(&opts.token, "token", "", "bearer token or jwt signing secret")
	f.StringVar(&opts.user, "user", "", "basic auth user")
	f.StringVar(&opts.password, "password", "", "basic auth password")
	f.StringVar(&opts.cache, "cache", "none", "read cache: none, memory or redis")

	return cmd
}

// ask fills the options interactively, using flag values as defaults
func (o *initOptions) ask() error {
	if err := survey.AskOne(&survey.Input{
		Message: "Site URL:",
		Default: o.site,
	}, &o.site, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Wire format:",
		Options: []string{"json", "xml"},
		Default: o.format,
	}, &o.format); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Authentication:",
		Options: []string{"none", "basic", "bearer", "jwt"},
		Default: o.auth,
	}, &o.auth); err != nil {
		return err
	}

	switch o.auth {
	case "basic":
		if err := survey.AskOne(&survey.Input{Message: "User:", Default: o.user}, &o.user, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &o.password); err != nil {
			return err
		}
	case "bearer", "jwt":
		message := "Token:"
		if o.auth == "jwt" {
			message = "Signing secret:"
		}
		if err := survey.AskOne(&survey.Password{Message: message}, &o.token, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	return survey.AskOne(&survey.Select{
		Message: "Read cache:",
		Options: []string{"none", "memory", "redis"},
		Default: o.cache,
	}, &o.cache)
}

func (o *initOptions) config() *config.Config {
	cfg := config.Default()
	cfg.Site = o.site
	cfg.Format = o.format
	cfg.Auth.Type = o.auth
	switch o.auth {
	case "basic":
		cfg.Auth.User = o.user
		cfg.Auth.Password = o.password
	case "bearer":
		cfg.Auth.Token = o.token
	case "jwt":
		cfg.Auth.Secret = o.token
	}
	cfg.Cache.Backend = o.cache
	return cfg
}
