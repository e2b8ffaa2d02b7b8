package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/restorm/internal/orm/query"
	"github.com/conduit-lang/restorm/internal/orm/resource"
)

type listOptions struct {
	where     []string
	includes  []string
	extra     []string
	extraAll  bool
	extraNone bool
	order     []string
	from      string
	sum       string
	count     bool
	output    string
}

func newListCommand(global *globalOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <type>",
		Short: "List records of a resource type",
		Example: `  restorm list Person --where age=42 --order name
  restorm list Person --include projects --extra bio
  restorm list Project --where person_id=1 --count
  restorm list Person --sum age`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTypes(global),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(opts.output); err != nil {
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
			d, err := opts.delegation(t)
			if err != nil {
				return err
			}

			ctx, out := cmd.Context(), cmd.OutOrStdout()
			switch {
			case opts.count:
				n, err := d.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, n)
				return nil
			case opts.sum != "":
				total, err := d.Sum(ctx, opts.sum)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cell(total))
				return nil
			}

			records, err := d.All(ctx)
			if err != nil {
				return err
			}
			return renderRecords(out, t, records, opts.output, global.noColor)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.where, "where", "w", nil, "filter as field=value; repeat a field to match any of several values")
	f.StringSliceVarP(&opts.includes, "include", "i", nil, "associations to include")
	f.StringSliceVarP(&opts.extra, "extra", "e", nil, "extra attributes to fetch")
	f.BoolVar(&opts.extraAll, "extra-all", false, "fetch every extra attribute")
	f.BoolVar(&opts.extraNone, "extra-none", false, "skip default extra attributes")
	f.StringSliceVarP(&opts.order, "order", "o", nil, "order as field or field:asc|desc")
	f.StringVar(&opts.from, "from", "", "custom collection method or absolute path")
	f.StringVar(&opts.sum, "sum", "", "print the sum of a field instead of records")
	f.BoolVar(&opts.count, "count", false, "print the number of matching records")
	f.StringVar(&opts.output, "output", outputTable, "output format: table, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("count", "sum")
	cmd.MarkFlagsMutuallyExclusive("extra-all", "extra-none")

	return cmd
}

// delegation compiles the flags into a query on t
func (o *listOptions) delegation(t *resource.Type) (*query.Delegation[*resource.Record], error) {
	clauses, err := parseWhere(o.where)
	if err != nil {
		return nil, err
	}

	d := t.Where(clauses).Includes(o.includes...).Extra(o.extra...)
	if o.extraAll {
		d.ExtraAll()
	}
	if o.extraNone {
		d.ExtraNone()
	}
	for _, entry := range o.order {
		if field, dir, ok := strings.Cut(entry, ":"); ok {
			d.OrderDir(field, dir)
		} else {
			d.Order(entry)
		}
	}
	if o.from != "" {
		d.From(o.from)
	}
	return d, nil
}

// parseWhere turns field=value pairs into query clauses. A repeated field
// collects its values into a list.
func parseWhere(pairs []string) (map[string]any, error) {
	clauses := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --where %q: want field=value", pair)
		}
		switch existing := clauses[field].(type) {
		case nil:
			clauses[field] = value
		case []any:
			clauses[field] = append(existing, value)
		default:
			clauses[field] = []any{existing, value}
		}
	}
	return clauses, nil
}
