package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"
	"golang.org/x/text/message"
)

var version = "0.1.0-dev"

var numFormat = message.NewPrinter(message.MatchLanguage("en"))

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "ogit: %s\n", err)
		return int(exitCode(err))
	}
	return int(object.ExitSuccess)
}

func newRootCmd() *cobra.Command {
	s := newSettings()
	root := &cobra.Command{
		Use:           "ogit",
		Short:         "Git-compatible object store and plumbing commands",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "settings file (default is $HOME/.ogit/config.toml)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{errors.Wrap(err, cmd.CommandPath())}
	})

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newHashObjectCmd())
	root.AddCommand(newCatFileCmd())
	root.AddCommand(newLsTreeCmd())
	root.AddCommand(newWriteTreeCmd())
	root.AddCommand(newCommitTreeCmd(s))
	root.AddCommand(newCloneCmd(s))
	root.AddCommand(newConfigCmd(s))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ogit %s\n", version)
		},
	}
}

// usageError marks a bad command line.
type usageError struct{ error }

func (u usageError) Cause() error  { return u.error }
func (u usageError) Unwrap() error { return u.error }

// exitCode maps err to a process status. Categorized errors carry their
// own status; anything else came from argument parsing.
func exitCode(err error) object.ExitCode {
	var ue usageError
	if errors.As(err, &ue) {
		return object.ExitUsage
	}
	var ce errcat.Error
	if errors.As(err, &ce) {
		return object.KindOf(err).ExitCode()
	}
	return object.ExitUsage
}

// usagef reports a bad command line.
func usagef(format string, args ...interface{}) error {
	return usageError{errors.Errorf(format, args...)}
}
