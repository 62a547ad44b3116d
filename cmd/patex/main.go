package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clarete/patex"
	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/envelope"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patex",
		Short:         "Match patterns against Gordian Envelopes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newParseCmd())
	root.AddCommand(newMatchCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var showProgram bool
	cmd := &cobra.Command{
		Use:   "parse <pattern>",
		Short: "Parse a pattern and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matcher, err := patex.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), matcher.String())
			if showProgram {
				fmt.Fprint(cmd.OutOrStdout(), matcher.Program().Disassemble())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showProgram, "program", false, "also print the compiled instruction program")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var (
		leafDiag  string
		lastOnly  bool
		withCaps  bool
		maxSteps  int
	)
	cmd := &cobra.Command{
		Use:   "match <pattern>",
		Short: "Match a pattern against an envelope leaf given in CBOR diagnostic notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matcher, err := patex.Parse(args[0])
			if err != nil {
				return err
			}
			if maxSteps > 0 {
				matcher = matcher.WithOptions(patex.MatchOptions{MaxSteps: maxSteps})
			}
			if leafDiag == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				leafDiag = strings.TrimSpace(string(data))
			}
			item, err := dcbor.ParseDiagnostic(leafDiag)
			if err != nil {
				return err
			}
			env := envelope.New(item)
			paths, captures, err := matcher.PathsWithCaptures(env)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
				return nil
			}
			if withCaps {
				fmt.Fprintln(cmd.OutOrStdout(), patex.FormatPathsWithCaptures(paths, captures))
				return nil
			}
			opts := patex.DefaultFormatPathsOpts()
			if lastOnly {
				opts.ElementFormat = patex.FormatLastOnly
			}
			fmt.Fprintln(cmd.OutOrStdout(), patex.FormatPathsOpt(paths, opts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&leafDiag, "envelope", "e", "", "envelope leaf in CBOR diagnostic notation (default: stdin)")
	cmd.Flags().BoolVar(&lastOnly, "last", false, "print only the terminal envelope of each path")
	cmd.Flags().BoolVar(&withCaps, "captures", false, "print capture blocks before the paths")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "VM step budget (0 = default)")
	return cmd
}
