package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/admission-lists/internal/app"
	"github.com/garyellow/admission-lists/internal/config"
	"github.com/garyellow/admission-lists/internal/ctxutil"
	"github.com/garyellow/admission-lists/internal/fetch"
	"github.com/garyellow/admission-lists/internal/logger"
	"github.com/garyellow/admission-lists/internal/metrics"
	"github.com/garyellow/admission-lists/internal/sentry"
	"github.com/garyellow/admission-lists/internal/timeouts"

	"github.com/google/uuid"
)

// skipSetup marks commands that run without configuration.
const skipSetup = "skip-setup"

// cli carries the state shared by all subcommands.
type cli struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	runID   string

	logLevel string
	strict   bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "idmap",
		Short: "Build, audit and publish admission competition list id mappings",
		Long: `idmap derives per-quota competition list identifiers from the admission
catalogue, keyed by program name, and checks the result against the
independently maintained program registry.

Configuration is read from .env and IDMAP_* environment variables.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override IDMAP_LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		c.newBuildCmd(),
		c.newAuditCmd(),
		c.newLookupCmd(),
		c.newPublishCmd(),
		c.newRunsCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	mode := config.CLIMode
	if cmd.Name() == "publish" {
		mode = config.PublishMode
	}
	cfg, err := config.LoadForMode(mode)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	// Logs go to stderr so command output on stdout stays machine readable.
	c.runID = uuid.NewString()
	c.log = app.NewLogger(cfg, cmd.ErrOrStderr(), "cli").
		WithField("command", cmd.Name()).
		WithRunID(c.runID)
	cmd.SetContext(ctxutil.WithRunID(cmd.Context(), c.runID))

	app.InitSentry(cfg, "idmap-"+cmd.Name(), c.log)
	c.metrics = metrics.New(app.NewRegistry())
	return nil
}

func (c *cli) teardown(cmd *cobra.Command, _ []string) error {
	if c.cfg == nil {
		return nil
	}
	if err := c.metrics.WriteTextfile(c.cfg.MetricsTextfile); err != nil {
		c.log.WithError(err).Warn("Failed to write metrics textfile")
	}
	sentry.Flush(timeouts.SentryFlush)
	return nil
}

// fail reports err to Sentry with the command name and returns it. Exit
// requests are passed through untouched.
func (c *cli) fail(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var exit *exitError
	if !errors.As(err, &exit) {
		sentry.CaptureWithTags(cmd.Context(), err, map[string]string{
			"command": cmd.Name(),
			"run_id":  c.runID,
		})
		err = fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	// PersistentPostRunE is skipped when RunE fails
	_ = c.teardown(cmd, nil)
	return err
}

// loader returns a source loader whose HTTP fetches are recorded in metrics.
func (c *cli) loader(cmd *cobra.Command) *fetch.Loader {
	client := fetch.NewClient(c.cfg.FetchTimeout, fetch.WithRecorder(c.metrics))
	return fetch.NewLoader(client).WithStdin(cmd.InOrStdin())
}
