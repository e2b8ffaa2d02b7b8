package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type getOptions struct {
	extra     []string
	extraAll  bool
	extraNone bool
	prefix    []string
	output    string
}

func newGetCommand(global *globalOptions) *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Fetch one record",
		Example: `  restorm get Person 1 --extra bio
  restorm get Dog 7 --prefix person_id=1 --output json`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeTypes(global),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(opts.output); err != nil {
				return err
			}
			params, err := parseWhere(opts.prefix)
			if err != nil {
				return err
			}

			rt, err := global.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			t, err := resolveType(rt.Client, args[0])
			if err != nil {
				return err
			}

			d := t.Where(params).Extra(opts.extra...)
			if opts.extraAll {
				d.ExtraAll()
			}
			if opts.extraNone {
				d.ExtraNone()
			}
			record, err := d.Find(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("%s %s: empty response", t.Name(), args[1])
			}
			return renderRecord(cmd.OutOrStdout(), record, opts.output, global.noColor)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.extra, "extra", "e", nil, "extra attributes to fetch")
	f.BoolVar(&opts.extraAll, "extra-all", false, "fetch every extra attribute")
	f.BoolVar(&opts.extraNone, "extra-none", false, "skip default extra attributes")
	f.StringArrayVarP(&opts.prefix, "prefix", "p", nil, "path prefix parameter as name=value")
	f.StringVar(&opts.output, "output", outputTable, "output format: table, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("extra-all", "extra-none")

	return cmd
}
