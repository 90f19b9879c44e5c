// Package cmd defines and implements the CLI for the site2pdf executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/site2pdf/internal/config"
)

// flagBindings maps CLI flags onto configuration keys.
var flagBindings = map[string]string{
	"depth":           "crawl.max_depth",
	"output":          "render.output_dir",
	"url-contains":    "filter.url_contains",
	"concurrency":     "render.concurrency",
	"timeout-policy":  "render.timeout_policy",
	"page-format":     "render.page_format",
	"metrics-addr":    "metrics.addr",
	"gcs-bucket":      "storage.gcs_bucket",
	"crawl-workers":   "crawl.workers",
	"host-qps":        "crawl.host_qps",
	"chrome-path":     "render.chrome_path",
	"nav-timeout":     "render.navigation_timeout",
	"request-timeout": "crawl.request_timeout",
}

// newRootCmd creates the site2pdf command. v receives the flag bindings so
// tests can supply an isolated Viper instance.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "site2pdf <url>",
		Short: "Crawl a site and render every discovered page to PDF",
		Long: `site2pdf discovers the pages reachable from a root URL up to a link
depth, optionally keeps only URLs containing given keywords, and renders each
page to a PDF file with headless Chrome.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyIncludeExternal(cmd.Flags(), v); err != nil {
				return err
			}
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.Int("depth", 1, "link depth to crawl from the root URL")
	flags.String("output", "output_pdfs", "directory for the rendered PDFs")
	flags.Bool("include-external", false, "follow links to other hosts")
	flags.StringSlice("url-contains", nil, "only render URLs containing one of these keywords")
	flags.Int("concurrency", 8, "number of pages rendered at once")
	flags.String("timeout-policy", "render", `what a navigation timeout means: "render" or "fail"`)
	flags.String("page-format", "A4", "paper size: A3, A4, A5, Letter or Legal")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	flags.String("gcs-bucket", "", "mirror rendered PDFs to this GCS bucket")
	flags.Int("crawl-workers", 8, "number of pages fetched at once while crawling")
	flags.Float64("host-qps", 0, "max crawl requests per second to one host (0 = unlimited)")
	flags.String("chrome-path", "", "Chrome executable to use instead of auto-discovery")
	flags.Duration("nav-timeout", 0, "navigation timeout per page (default 2m)")
	flags.Duration("request-timeout", 0, "crawl request timeout (default 10s)")

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
	return cmd
}

// applyIncludeExternal maps the inverted --include-external flag onto
// crawl.same_domain_only when the user set it.
func applyIncludeExternal(flags *pflag.FlagSet, v *viper.Viper) error {
	if !flags.Changed("include-external") {
		return nil
	}
	external, err := flags.GetBool("include-external")
	if err != nil {
		return fmt.Errorf("read include-external: %w", err)
	}
	v.Set("crawl.same_domain_only", !external)
	return nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.NewViper()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "site2pdf: %v\n", err)
		stop()
		os.Exit(1)
	}
}
