package main

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/remote"
	"github.com/spf13/cobra"
	"github.com/warpfork/go-errcat"
)

func newCloneCmd(s *settings) *cobra.Command {
	var remoteName string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "clone <url> [directory]",
		Short: "Fetch a repository over smart HTTP",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.load(nil); err != nil {
				return err
			}
			opts, err := s.clientOptions()
			if err != nil {
				return err
			}
			client, err := remote.NewClientWithOptions(args[0], opts)
			if err != nil {
				return err
			}

			dest := ""
			if len(args) == 2 {
				dest = args[1]
			} else {
				dest = defaultCloneDir(client.Endpoint().BaseURL)
			}
			if strings.TrimSpace(dest) == "" {
				return usagef("clone: cannot derive a directory name from %q", args[0])
			}
			absDest, err := filepath.Abs(dest)
			if err != nil {
				return errcat.Errorf(object.KindIO, "resolve destination: %s", err)
			}

			stderr := cmd.ErrOrStderr()
			var progress func(string)
			if !quiet {
				fmt.Fprintf(stderr, "Cloning into '%s'...\n", dest)
				progress = func(msg string) { fmt.Fprint(stderr, msg) }
			}

			res, err := remote.Clone(cmd.Context(), client, absDest, remote.CloneOptions{
				RemoteName: remoteName,
				Progress:   progress,
			})
			if err != nil {
				return err
			}
			if quiet {
				return nil
			}
			if res.Empty {
				fmt.Fprintln(stderr, "warning: You appear to have cloned an empty repository.")
				return nil
			}
			numFormat.Fprintf(stderr, "Received %d objects, HEAD is %s\n", res.Objects, res.Branch)
			return nil
		},
	}
	cmd.Flags().StringVarP(&remoteName, "origin", "o", remote.DefaultRemoteName, "name of the remote")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

// defaultCloneDir names the clone after the last path segment of the URL,
// without a .git suffix.
func defaultCloneDir(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	name = strings.TrimSuffix(name, ".git")
	if name == "/" || name == "." {
		return ""
	}
	return name
}
