// Package commands implements the smbls command line.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/absfs/smbsession"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

// envPrefix namespaces the environment variables bound to global flags,
// e.g. SMBLS_USER or SMBLS_LOG_LEVEL.
const envPrefix = "SMBLS"

// options carries the per-invocation state shared by subcommands.
type options struct {
	v         *viper.Viper
	transport smbsession.Transport
}

// NewRootCmd builds the command tree. A nil transport dials real servers.
func NewRootCmd(transport smbsession.Transport) *cobra.Command {
	opts := &options{v: viper.New(), transport: transport}

	root := &cobra.Command{
		Use:   "smbls",
		Short: "List SMB shares and directories",
		Long: `smbls logs in to an SMB server and lists its shares or the contents
of a directory.

If the server rejects the supplied credentials, smbls falls back to a
null session and carries on with whatever that session can see.

Every global flag can also be set through the environment, for example
SMBLS_USER, SMBLS_PASSWORD, SMBLS_HASH or SMBLS_LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("user", "u", "", "username (empty for a null session)")
	flags.StringP("password", "p", "", "password")
	flags.StringP("domain", "d", "", "domain")
	flags.String("hash", "", "NT hash, as NT or LM:NT")
	flags.Int("port", smbsession.DefaultPort, "server port")
	flags.Duration("timeout", smbsession.DefaultConnTimeout, "connection timeout")
	flags.Duration("deadline", 0, "overall deadline for the command (0 for none)")
	flags.String("log-level", "warning", "log level (debug, info, warning, error)")

	opts.v.SetEnvPrefix(envPrefix)
	opts.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	opts.v.AutomaticEnv()
	_ = opts.v.BindPFlags(flags)

	root.AddCommand(newSharesCmd(opts))
	root.AddCommand(newLsCmd(opts))
	root.AddCommand(newVersionCmd())

	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// Execute runs the command line against real servers.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

// logger builds the logger for this invocation from the log-level setting.
func (o *options) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(o.v.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("error parsing log level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(level)
	return log, nil
}

// config assembles a session configuration for host.
func (o *options) config(host string, log logrus.FieldLogger) *smbsession.Config {
	return &smbsession.Config{
		Server:      host,
		Port:        o.v.GetInt("port"),
		Username:    o.v.GetString("user"),
		Password:    o.v.GetString("password"),
		Domain:      o.v.GetString("domain"),
		NTHash:      o.v.GetString("hash"),
		ConnTimeout: o.v.GetDuration("timeout"),
		Transport:   o.transport,
		Logger:      log,
	}
}

// login creates a session for host and logs in. A degraded login is not an
// error; the caller gets a usable null session.
func (o *options) login(ctx context.Context, cmd *cobra.Command, host string) (*smbsession.Session, error) {
	log, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}

	sess, err := smbsession.New(o.config(host, log))
	if err != nil {
		return nil, err
	}

	switch sess.Login(ctx, false) {
	case smbsession.OutcomeFailed:
		lastErr := sess.LastError()
		_ = sess.Close()
		return nil, fmt.Errorf("login to %s failed: %w", host, lastErr)
	case smbsession.OutcomeDegraded:
		log.WithField("host", host).Info("credentials rejected, continuing with a null session")
	}

	return sess, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "smbls %s (commit: %s)\n", Version, Commit)
		},
	}
}

// withTimeout bounds a whole command when a deadline is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
