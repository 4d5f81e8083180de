package main

import (
	"fmt"

	"github.com/odvcencio/ogit/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write per-user settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := s.loadFile()
			if err != nil {
				return err
			}
			val, err := f.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, path, err := s.loadFile()
			if err != nil {
				return err
			}
			if err := f.Set(args[0], args[1]); err != nil {
				return err
			}
			return f.Save(path)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every stored setting as key=value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := s.loadFile()
			if err != nil {
				return err
			}
			for _, key := range config.Keys() {
				if val, err := f.Get(key); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, val)
				}
			}
			return nil
		},
	})
	return cmd
}
