package main

import (
	"fmt"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] <tree>",
		Short: "List the entries of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := object.ParseOID(args[0])
			if err != nil {
				return err
			}
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if nameOnly {
				names, err := r.LsTreeNames(oid)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			entries, err := r.LsTree(oid)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintln(out, repo.FormatTreeEntry(e))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")
	return cmd
}
