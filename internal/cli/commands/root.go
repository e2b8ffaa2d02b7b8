// Package commands implements the restorm command line
package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/restorm/internal/cli/ui"
	"github.com/conduit-lang/restorm/internal/config"
	"github.com/conduit-lang/restorm/internal/orm/resource"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	noColor    bool
	logLevel   string
}

// typeNotFoundError is returned when a command names an undeclared resource type
type typeNotFoundError struct {
	name        string
	suggestions []string
}

func (e *typeNotFoundError) Error() string {
	return fmt.Sprintf("unknown resource type %s", e.name)
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "restorm",
		Short: "Query remote REST resources from the command line",
		Long: color.CyanString(`restorm - typed client for remote REST resources

Declare resource types, attributes and associations in restorm.yaml,
then list, fetch and inspect them as if they were local records.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ./restorm.yaml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newGetCommand(opts))
	rootCmd.AddCommand(newSchemaCommand(opts))
	rootCmd.AddCommand(newInitCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			title := color.New(color.FgCyan, color.Bold)
			title.Fprint(out, "restorm version: ")
			fmt.Fprintln(out, Version)
			title.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			title.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			title.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// open loads the configuration and builds a client from it
func (o *globalOptions) open(cmd *cobra.Command) (*config.Runtime, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cfg.Site == "" {
		return nil, fmt.Errorf("%w: site is not set", config.ErrInvalidConfig)
	}
	return cfg.Open(cmd.Context())
}

// resolveType finds a declared type by name or bound wire name
func resolveType(client *resource.Client, name string) (*resource.Type, error) {
	if t, ok := client.Type(name); ok {
		return t, nil
	}
	if t, err := client.Resolve(name); err == nil {
		return t, nil
	}

	var names []string
	for _, t := range client.Types() {
		names = append(names, t.Name())
	}
	return nil, &typeNotFoundError{name: name, suggestions: ui.Suggest(name, names)}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")
	w := rootCmd.ErrOrStderr()

	var notFound *typeNotFoundError
	switch {
	case errors.As(err, &notFound):
		fmt.Fprint(w, ui.TypeNotFoundError(notFound.name, notFound.suggestions, noColor))
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprint(w, ui.ConfigError(err.Error(), noColor))
	default:
		ui.WriteError(w, ui.ErrorOptions{Problem: err.Error(), NoColor: noColor})
	}
	return err
}
