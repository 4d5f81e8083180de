package main

import (
	"fmt"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [-w] <file>",
		Short: "Compute the blob id of a file, optionally storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var store *object.Store
			if write {
				r, err := repo.Open(".")
				if err != nil {
					return err
				}
				store = r.Store
			}
			oid, err := repo.HashFile(args[0], store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oid)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blob into the object store")
	return cmd
}
