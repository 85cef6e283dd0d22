package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/absfs/smbsession"
)

// EntryList is a directory listing for table rendering.
type EntryList []smbsession.Entry

// Headers implements TableRenderer.
func (el EntryList) Headers() []string {
	return []string{"NAME", "SIZE", "MODIFIED", "ATTRIBUTES"}
}

// Rows implements TableRenderer.
func (el EntryList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, e := range el {
		name := e.Name()
		if e.IsDir() {
			name += `\`
		}
		rows = append(rows, []string{
			name,
			strconv.FormatInt(e.Size(), 10),
			e.ModTime().Format("2006-01-02 15:04"),
			e.Attributes().String(),
		})
	}
	return rows
}

func newLsCmd(opts *options) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "ls HOST SHARE [PATH]",
		Short: "List a directory on a share",
		Long: `List the entries of PATH on SHARE. PATH defaults to the share root and
may use either slash or backslash separators.

By default the listing stops at the first error and prints what was read
so far. With --retry, transient failures rebuild the session and the
listing starts over.

Examples:
  smbls ls 10.0.0.5 C$ Users
  smbls ls fileserver Public '\Reports\2024' -u alice -p secret --retry`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, share := args[0], args[1]
			dir := ""
			if len(args) == 3 {
				dir = args[2]
			}

			ctx, cancel := withTimeout(cmd.Context(), opts.v.GetDuration("deadline"))
			defer cancel()

			sess, err := opts.login(ctx, cmd, host)
			if err != nil {
				return err
			}
			defer sess.Close()

			var entries EntryList
			var listErr error
			if retry {
				entries, listErr = sess.ReadDir(ctx, share, dir)
			} else {
				for entry, err := range sess.Ls(ctx, share, dir) {
					if err != nil {
						listErr = err
						break
					}
					entries = append(entries, entry)
				}
			}

			if len(entries) > 0 {
				PrintTable(cmd.OutOrStdout(), entries)
			} else if listErr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries found.")
			}
			return listErr
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "rebuild the session and retry on transient failures")

	return cmd
}
