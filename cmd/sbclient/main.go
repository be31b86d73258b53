// Command sbclient creates short links through the Smart Bridge API.
//
//	sbclient [flags] URL [URL...]
//
// Settings come from -config, then SB_* environment variables, then flags.
// One JSON line is printed per URL, in argument order. The exit status is
// 0 when every link was created, 3 when some failed, 1 when all failed and
// 2 for usage or configuration errors.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitalvas/smartbridge/config"
	"github.com/vitalvas/smartbridge/sbclient"
	"github.com/vitalvas/smartbridge/sbsig"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

type options struct {
	configPath  string
	siteURL     string
	slug        string
	message     string
	timeout     time.Duration
	concurrency int
	debug       bool
	urls        []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sbclient", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.siteURL, "site", "", "site root, overrides site_url")
	fs.StringVar(&opts.slug, "slug", "", "custom slug, only with a single URL")
	fs.StringVar(&opts.message, "message", "", "loading message shown before redirect")
	fs.DurationVar(&opts.timeout, "timeout", 0, "per request timeout, overrides timeout")
	fs.IntVar(&opts.concurrency, "concurrency", 0, "parallel requests, overrides concurrency")
	fs.BoolVar(&opts.debug, "debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.urls = fs.Args()

	if len(opts.urls) == 0 {
		return nil, errors.New("at least one URL is required")
	}

	if opts.slug != "" && len(opts.urls) > 1 {
		return nil, errors.New("-slug requires exactly one URL")
	}

	return opts, nil
}

func (o *options) apply(cfg *config.Config) error {
	if o.siteURL != "" {
		cfg.SiteURL = o.siteURL
		cfg.Endpoint = ""
	}

	if o.timeout != 0 {
		cfg.Timeout = o.timeout
	}

	if o.concurrency != 0 {
		cfg.Concurrency = o.concurrency
	}

	return cfg.Validate()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

type result struct {
	TargetURL string `json:"target_url"`
	ShortLink string `json:"short_link,omitempty"`
	Slug      string `json:"slug,omitempty"`
	Platform  string `json:"platform,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func newResult(res sbclient.BatchResult) result {
	out := result{TargetURL: res.Request.TargetURL}

	if res.Err != nil {
		out.Error = res.Err.Error()
		out.Kind = sbclient.KindOf(res.Err).String()
		out.Retryable = sbclient.Retryable(res.Err)

		var aerr *sbclient.APIError
		if errors.As(res.Err, &aerr) {
			out.Code = aerr.Code
			out.Error = aerr.Message
		}

		return out
	}

	out.ShortLink = res.Link.ShortLink
	out.Slug = res.Link.Slug
	out.Platform = res.Link.Platform
	out.CreatedAt = res.Link.CreatedAt

	return out
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer, logger *zap.Logger) int {
	cfg, err := config.Read(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "sbclient:", err)
		return exitUsage
	}

	if err := opts.apply(cfg); err != nil {
		fmt.Fprintln(stderr, "sbclient:", err)
		return exitUsage
	}

	client, err := sbclient.New(cfg.ClientConfig(), sbclient.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(stderr, "sbclient:", err)
		return exitUsage
	}

	logger.Debug("creating short links",
		zap.String("endpoint", client.Endpoint()),
		zap.String("api_key", sbsig.MaskKey(cfg.APIKey)),
		zap.Int("count", len(opts.urls)),
		zap.Int("concurrency", cfg.Concurrency),
	)

	reqs := make([]sbclient.LinkRequest, len(opts.urls))
	for i, u := range opts.urls {
		reqs[i] = sbclient.LinkRequest{
			TargetURL:      u,
			Slug:           opts.slug,
			LoadingMessage: opts.message,
		}
	}

	results := client.CreateShortLinks(ctx, reqs, cfg.Concurrency)

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)

	failed := 0

	for _, res := range results {
		if res.Err != nil {
			failed++
		}

		if err := enc.Encode(newResult(res)); err != nil {
			logger.Error("writing result failed", zap.Error(err))
			return exitFailed
		}
	}

	switch {
	case failed == 0:
		return exitOK
	case failed == len(results):
		return exitFailed
	default:
		return exitPartial
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "sbclient:", err)
		}

		os.Exit(exitUsage)
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sbclient:", err)
		os.Exit(exitFailed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx, opts, os.Stdout, os.Stderr, logger)

	stop()
	logger.Sync()

	os.Exit(code)
}
