package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
)

func kindNames() string {
	names := make([]string, len(analysis.Kinds))
	for i, k := range analysis.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind>",
		Short: "Print the last stored result of a kind",
		Long:  "Print the last stored result of a kind. Kinds: " + kindNames() + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := analysis.ParseKind(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, ok := svc.Stores().Get(kind)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no stored %s result\n", kind)
				return nil
			}
			return a.print(cmd, res)
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <kind|all>",
		Short: "Forget the stored result of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := analysis.Kinds
			if args[0] != "all" {
				kind, err := analysis.ParseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []analysis.Kind{kind}
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range kinds {
				if err := svc.Clear(k); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", k)
			}
			return nil
		},
	}
}
