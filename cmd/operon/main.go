// Command operon is the code-generation companion for the operon library.
package main

import (
	"fmt"
	"os"

	"github.com/operon-dev/operon/opgen"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "operon",
		Short:         "Code generation tools for operon APIs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newGenCmd() *cobra.Command {
	var (
		pkgName  string
		funcName string
		types    []string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "gen [patterns...]",
		Short: "Generate schema registrations from Go struct declarations.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return opgen.Generate(opgen.Config{
				Patterns: args,
				Types:    types,
				Package:  pkgName,
				FuncName: funcName,
			}, out)
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "api", "package name of the generated file")
	cmd.Flags().StringVar(&funcName, "func", "RegisterSchemas", "name of the generated registration function")
	cmd.Flags().StringSliceVar(&types, "types", nil, "restrict generation to the named struct types")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to stdout)")
	return cmd
}
