package main

import (
	"fmt"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"
)

func newCatFileCmd() *cobra.Command {
	var pretty, showType, showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | -t | -s) <object>",
		Short: "Print an object's content, type or size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{pretty, showType, showSize} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return usagef("cat-file: exactly one of -p, -t or -s is required")
			}

			oid, err := object.ParseOID(args[0])
			if err != nil {
				return err
			}
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			objType, data, err := r.Cat(oid)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			case objType == object.TypeTree:
				tr, err := object.ParseTree(data)
				if err != nil {
					return err
				}
				for _, e := range tr.Entries {
					fmt.Fprintln(out, repo.FormatTreeEntry(e))
				}
			default:
				if _, err := out.Write(data); err != nil {
					return errcat.Errorf(object.KindIO, "write output: %s", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print the object content")
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the payload size in bytes")
	return cmd
}
