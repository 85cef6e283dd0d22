package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ShareList is a list of share names for table rendering.
type ShareList []string

// Headers implements TableRenderer.
func (sl ShareList) Headers() []string {
	return []string{"SHARE"}
}

// Rows implements TableRenderer.
func (sl ShareList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, name := range sl {
		rows = append(rows, []string{name})
	}
	return rows
}

func newSharesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shares HOST",
		Short: "List the shares on a server",
		Long: `List the shares visible to the session on HOST.

Examples:
  # Null session
  smbls shares 10.0.0.5

  # Domain credentials
  smbls shares fileserver -d CORP -u alice -p secret

  # Pass the hash
  SMBLS_HASH=8846f7eaee8fb117ad06bdd830b7586c smbls shares fileserver -u alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd.Context(), opts.v.GetDuration("deadline"))
			defer cancel()

			sess, err := opts.login(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			var shares ShareList
			for name := range sess.Shares(ctx) {
				shares = append(shares, name)
			}

			if len(shares) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No shares found.")
				return nil
			}
			PrintTable(cmd.OutOrStdout(), shares)
			return nil
		},
	}
}
