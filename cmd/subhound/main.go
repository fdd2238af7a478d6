/*
Package main is the entry point for the subhound command-line application.

subhound enumerates the subdomains of a domain through the crt.sh certificate
transparency search, then sends one HEAD request to each host it found and
reports the status codes. Results are printed as they arrive and saved to
<domain>.txt.

The command is built with Cobra. It uses:
  - `internal/config`: defaults, the optional YAML file and validation.
  - `internal/certlib`: the crt.sh query and hostname extraction.
  - `internal/core`: the bounded worker pool that runs the probes.
  - `internal/output`: the results file.
  - `internal/metrics`: optional Prometheus endpoint.

Interrupting the process (SIGINT, SIGTERM) cancels outstanding probes. The
results collected so far are still written.
*/
package main

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mxngel/SubHound/internal/certlib"
	"github.com/mxngel/SubHound/internal/client"
	"github.com/mxngel/SubHound/internal/config"
	"github.com/mxngel/SubHound/internal/core"
	"github.com/mxngel/SubHound/internal/metrics"
	"github.com/mxngel/SubHound/internal/output"
	"github.com/mxngel/SubHound/internal/util"
)

var (
	// errUsage means the invocation was malformed; usage has to be shown.
	errUsage = errors.New("usage")
	// errNoSubdomains means discovery succeeded but matched nothing.
	errNoSubdomains = errors.New("no subdomains found")
)

// options holds the values of the tuning flags.
type options struct {
	configPath  string
	workers     int
	timeout     time.Duration
	endpoint    string
	outputDir   string
	metricsAddr string
	progress    bool
	verbose     bool
	noColor     bool
}

// deps lets tests replace the network-facing parts. Zero values mean production behaviour.
type deps struct {
	discoveryClient *http.Client
	prober          core.Prober
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr, deps{}))
}

// execute runs the command and maps its outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	cmd := newRootCmd(stdout, stderr, d)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		printBanner(stdout)
		printUsage(stdout)
		return 1
	case errors.Is(err, errNoSubdomains):
		return 1
	default:
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return 1
	}
}

func newRootCmd(stdout, stderr io.Writer, d deps) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "subhound [-h] domain",
		Short:         "SubHound - subdomain enumeration via the crt.sh certificate database",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errUsage
			}
			return run(cmd, args[0], opts, stdout, stderr, d)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.IntVarP(&opts.workers, "workers", "w", config.DefaultWorkers, "Maximum number of concurrent probes")
	flags.DurationVarP(&opts.timeout, "timeout", "t", config.DefaultProbeTimeout, "Timeout for each probe")
	flags.StringVar(&opts.endpoint, "endpoint", config.DefaultEndpoint, "CT search URL template, %s receives the domain")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", config.DefaultOutputDir, "Directory for <domain>.txt")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
	flags.BoolVar(&opts.progress, "progress", false, "Show a progress bar on stderr while probing")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Write diagnostic logs to stderr")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable coloured status codes")
	for _, name := range []string{"config", "workers", "timeout", "endpoint", "output-dir", "metrics-addr", "progress", "verbose", "no-color"} {
		_ = flags.MarkHidden(name)
	}

	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printBanner(c.OutOrStdout())
		printUsage(c.OutOrStdout())
	})
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		printUsage(c.OutOrStdout())
		return nil
	})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})
	return cmd
}

// loadConfig merges defaults, the optional YAML file and explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Probe.Workers = opts.workers
	}
	if flags.Changed("timeout") {
		cfg.Probe.Timeout = opts.timeout
	}
	if flags.Changed("endpoint") {
		cfg.Discovery.Endpoint = opts.endpoint
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = opts.outputDir
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if flags.Changed("progress") {
		cfg.Output.Progress = opts.progress
	}
	if flags.Changed("no-color") {
		cfg.Output.NoColor = opts.noColor
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run is the whole tool: discover, list, probe, persist.
func run(cmd *cobra.Command, domain string, opts *options, stdout, stderr io.Writer, d deps) error {
	printBanner(stdout)

	if opts.verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		metrics.EnableMetrics()
		if err := metrics.StartMetricsServer(cfg.Metrics.Addr); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metrics.ShutdownMetricsServer(shutdownCtx); err != nil {
				log.Printf("Metrics server shutdown: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	discoveryClient := d.discoveryClient
	if discoveryClient == nil {
		client.InitHTTPClient(&client.Config{
			RequestTimeout: cfg.Discovery.Timeout,
			UserAgent:      cfg.Discovery.UserAgent,
		})
		discoveryClient = client.GetHTTPClient()
	}

	candidates, err := certlib.Discover(ctx, discoveryClient, cfg.Discovery.Endpoint, domain)
	if err != nil {
		return err
	}
	if candidates.Len() == 0 {
		fmt.Fprintln(stdout, "No subdomains found :(")
		return errNoSubdomains
	}

	fmt.Fprint(stdout, "Subdomains found!\n\n")
	for _, c := range candidates.Sorted() {
		fmt.Fprintln(stdout, c)
	}

	path := util.ResultFilePath(cfg.Output.Dir, domain)
	sink, err := output.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrOutput, err)
	}

	fmt.Fprint(stdout, "\nChecking for status code...\n\n")

	pipelineCfg := core.PipelineConfig{
		Workers:    cfg.Probe.Workers,
		Timeout:    cfg.Probe.Timeout,
		Prober:     d.prober,
		Echo:       stdout,
		EchoFormat: statusFormatter(cfg.Output.NoColor || stdout != os.Stdout || color.NoColor),
	}
	var bar *progressbar.ProgressBar
	if cfg.Output.Progress {
		bar = progressbar.NewOptions(candidates.Len(),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Probing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
		pipelineCfg.OnProbeDone = func(core.ProbeResult, bool) {
			_ = bar.Add(1)
		}
	}

	pipeline, err := core.NewPipeline(pipelineCfg)
	if err != nil {
		sink.Close()
		return err
	}
	log.Printf("Probing %d candidates with %d workers (%v timeout), results in %s",
		candidates.Len(), cfg.Probe.Workers, cfg.Probe.Timeout, path)

	_, runErr := pipeline.Run(ctx, candidates.Items(), sink)
	closeErr := sink.Close()
	if bar != nil {
		_ = bar.Finish()
	}
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %w", core.ErrOutput, closeErr)
	}

	fmt.Fprint(stdout, "\nDone!\n")
	return nil
}
