package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return errcat.Errorf(object.KindIO, "resolve path: %s", err)
			}

			r, err := repo.Init(abs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty repository in %s%c\n", r.GitDir, filepath.Separator)
			return nil
		},
	}
}
