package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/odvcencio/ogit/pkg/repo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCommitTreeCmd(s *settings) *cobra.Command {
	var parents []string
	var messages []string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>]... -m <message>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(messages) == 0 {
				return usagef("commit-tree: a message is required (-m)")
			}
			flags := cmd.Flags()
			if err := s.load(map[string]*pflag.Flag{
				keyUserName:  flags.Lookup("author-name"),
				keyUserEmail: flags.Lookup("author-email"),
				keyDate:      flags.Lookup("date"),
			}); err != nil {
				return err
			}

			tree, err := object.ParseOID(args[0])
			if err != nil {
				return err
			}
			parentOIDs := make([]object.OID, 0, len(parents))
			for _, p := range parents {
				oid, err := object.ParseOID(p)
				if err != nil {
					return err
				}
				parentOIDs = append(parentOIDs, oid)
			}

			when, err := parseDate(s.v.GetString(keyDate))
			if err != nil {
				return err
			}
			name, email := s.identity()
			sig := object.Signature{Name: name, Email: email, When: when}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			oid, err := r.CommitTree(tree, parentOIDs, sig, sig, commitMessage(messages))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), oid)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&parents, "parent", "p", nil, "parent commit (repeatable, order is kept)")
	cmd.Flags().StringArrayVarP(&messages, "message", "m", nil, "commit message paragraph (repeatable)")
	cmd.Flags().String("author-name", "", "author and committer name (env OGIT_USER_NAME)")
	cmd.Flags().String("author-email", "", "author and committer email (env OGIT_USER_EMAIL)")
	cmd.Flags().String("date", "", `commit time as "<unix-seconds> [+hhmm]" (env OGIT_DATE)`)
	return cmd
}

// commitMessage joins -m paragraphs with a blank line and ends the result
// with a newline.
func commitMessage(paragraphs []string) string {
	msg := strings.Join(paragraphs, "\n\n")
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

// parseDate reads "<unix-seconds> [+hhmm]". An empty string is the
// current time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	secsText, tz, hasTZ := strings.Cut(s, " ")
	secs, err := strconv.ParseInt(secsText, 10, 64)
	if err != nil {
		return time.Time{}, usagef("bad date %q: want <unix-seconds> [+hhmm]", s)
	}
	if !hasTZ {
		return time.Unix(secs, 0).UTC(), nil
	}
	zone, err := time.Parse("-0700", strings.TrimSpace(tz))
	if err != nil {
		return time.Time{}, usagef("bad timezone in date %q", s)
	}
	_, offset := zone.Zone()
	return time.Unix(secs, 0).In(time.FixedZone("", offset)), nil
}
