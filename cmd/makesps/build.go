// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keinus/make-sps/internal/config"
	"github.com/keinus/make-sps/internal/describe"
	"github.com/keinus/make-sps/internal/issue"
	"github.com/keinus/make-sps/internal/ledger"
	"github.com/keinus/make-sps/internal/manifest"
	"github.com/keinus/make-sps/internal/publish"
	"github.com/keinus/make-sps/internal/render"
	"github.com/keinus/make-sps/internal/report"
	"github.com/keinus/make-sps/internal/scan"
	"github.com/keinus/make-sps/internal/unpack"
	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/fingerprint"
)

type (
	// buildOptions holds the build command flags.
	buildOptions struct {
		device          string
		csu             string
		version         string
		partNumber      string
		checksum        string
		manifest        string
		format          string
		out             string
		pretty          bool
		workers         int
		exclude         []string
		etc             []string
		unknownAsConfig bool
		publish         bool
		ledgerDSN       string
	}

	// buildOutcome is what a build produced besides the report itself.
	buildOutcome struct {
		result   *report.Result
		format   render.Format
		out      string
		location *publish.Location
		runID    int64
		diff     *ledger.Diff
	}
)

func newBuildCommand(app *App) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build <root | archive.zip>",
		Short: "Build the SPS file inventory report",
		Long: `Scan a software delivery and write the SPS file inventory report.

The root is a delivery directory or a .zip archive of one. A project
manifest (make-sps.yaml, .yml, .toml, .cue or .json) in the root supplies the
device, version, part number prefix, checksum algorithm and CSU layout.
Without a manifest, --device is required and the whole root is one CSU.

Flags override the manifest; the manifest overrides the configuration.`,
		Example: `  make-sps build ./delivery
  make-sps build ./delivery --device RDR-1 --csu core --version 1.0
  make-sps build ./delivery.zip --format hwpx --out section0.xml
  make-sps build ./delivery --format terminal --exclude "**/*.log"`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(cmd, runBuild(cmd.Context(), app, opts, args[0]))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.device, "device", "", "device name (overrides the manifest)")
	flags.StringVar(&opts.csu, "csu", "", "CSU name when scanning without a manifest")
	flags.StringVar(&opts.version, "version", "", "delivery version (overrides the manifest)")
	flags.StringVar(&opts.partNumber, "partnumber", "", "part number prefix (overrides the manifest)")
	flags.StringVar(&opts.checksum, "checksum", "", "checksum algorithm: SHA256 or MD5")
	flags.StringVar(&opts.manifest, "manifest", "", "explicit manifest path")
	flags.StringVarP(&opts.format, "format", "f", "", "report format: markdown, terminal, json, hwpx (default from config)")
	flags.StringVarP(&opts.out, "out", "o", "", "write the report to this file instead of stdout")
	flags.BoolVar(&opts.pretty, "pretty", false, "render markdown for the terminal")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "parallel workers (default from config, then NumCPU)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "doublestar pattern to skip, relative to each scanned directory (repeatable)")
	flags.StringArrayVar(&opts.etc, "etc", nil, "doublestar pattern of root-relative paths to list as etc files (repeatable)")
	flags.BoolVar(&opts.unknownAsConfig, "unknown-as-config", false, "classify unknown extensions as configuration files")
	flags.BoolVar(&opts.publish, "publish", false, "upload the report to the configured S3 bucket")
	flags.StringVar(&opts.ledgerDSN, "ledger-dsn", "", "PostgreSQL DSN to record the run in")

	return cmd
}

func runBuild(ctx context.Context, app *App, opts *buildOptions, root string) error {
	cfg, err := app.Settings(ctx)
	if err != nil {
		return err
	}
	logger := app.Logger()

	format := cfg.Report.Format
	if opts.format != "" {
		format = render.Format(opts.format)
	}
	renderer, err := render.New(format, render.Options{
		Pretty:  opts.pretty,
		Style:   string(cfg.UI.ColorScheme),
		NoColor: opts.out != "",
	})
	if err != nil {
		return usageError(err)
	}

	var alg fingerprint.Algorithm
	if opts.checksum != "" {
		if alg, err = fingerprint.ParseAlgorithm(opts.checksum); err != nil {
			return usageError(err)
		}
	}

	fallback := cfg.Classify.UnknownFallback
	if opts.unknownAsConfig {
		fallback = category.FallbackConfiguration
	}
	classifier, err := category.NewClassifier(fallback)
	if err != nil {
		return err
	}

	maxSize, err := cfg.Describe.MaxFileSize.Bytes()
	if err != nil {
		return err
	}

	source := root
	root, cleanup, err := prepareRoot(ctx, source)
	if err != nil {
		return wrapBuildError(err, source)
	}
	defer cleanup()

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.Scan.Workers
	}

	svc := report.NewService(report.Config{
		Classifier:         classifier,
		OnFingerprintError: cfg.Fingerprint.OnError,
		DefaultAlgorithm:   cfg.Fingerprint.Algorithm,
		Describe: describe.Config{
			Provider:    cfg.Describe.Provider,
			Model:       cfg.Describe.Model,
			APIBase:     cfg.Describe.APIBase,
			MaxFileSize: maxSize,
			Timeout:     cfg.Describe.Timeout,
			CacheSize:   cfg.Describe.CacheSize,
			Logger:      logger,
		},
		Logger: logger,
	})

	res, err := svc.Build(ctx, report.Request{
		Root:        root,
		Manifest:    opts.manifest,
		Device:      opts.device,
		CSU:         opts.csu,
		Version:     opts.version,
		PartNumber:  opts.partNumber,
		Algorithm:   alg,
		Exclude:     append(slices.Clone(cfg.Scan.Exclude), opts.exclude...),
		EtcPatterns: append(slices.Clone(cfg.Scan.EtcPatterns), opts.etc...),
		Workers:     workers,
	})
	if err != nil {
		return wrapBuildError(err, source)
	}

	var body bytes.Buffer
	if err := renderer.Render(&body, res.Document); err != nil {
		return renderError(err, string(format))
	}
	if err := writeReport(app.stdout, opts.out, body.Bytes()); err != nil {
		return renderError(err, opts.out)
	}

	outcome := buildOutcome{result: res, format: format, out: opts.out}
	ctxInfo := res.Plan.Context

	if opts.publish || cfg.Publish.S3.Enabled {
		loc, err := publishReport(ctx, app, cfg.Publish.S3, publish.Artifact{
			Device:    ctxInfo.Device,
			Version:   ctxInfo.Version,
			Extension: renderer.Extension(),
			Body:      body.Bytes(),
		})
		if err != nil {
			return err
		}
		outcome.location = &loc
		logger.Info("report published", "uri", loc.URI(), "size", loc.Size)
	}

	dsn := opts.ledgerDSN
	if dsn == "" && cfg.Ledger.Postgres.Enabled {
		dsn = cfg.Ledger.Postgres.DSN
	}
	if dsn != "" {
		runID, diff, err := recordRun(ctx, app, dsn, source, res)
		if err != nil {
			return err
		}
		outcome.runID = runID
		outcome.diff = diff
	}

	printBuildSummary(app.stderr, outcome)
	return nil
}

// prepareRoot validates root and extracts it first when it is a .zip
// archive. cleanup removes any extraction directory.
func prepareRoot(ctx context.Context, root string) (string, func(), error) {
	noop := func() {}

	info, err := os.Stat(root)
	if err != nil {
		return root, noop, fmt.Errorf("%w: %s: %w", scan.ErrRootNotFound, root, err)
	}
	if info.IsDir() {
		return root, noop, nil
	}
	if !unpack.IsZip(root) {
		return root, noop, fmt.Errorf("%w: %s is neither a directory nor a .zip archive", scan.ErrRootNotFound, root)
	}

	dir, err := os.MkdirTemp("", config.AppName+"-*")
	if err != nil {
		return root, noop, fmt.Errorf("creating extraction directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	if err := unpack.Zip(ctx, root, dir); err != nil {
		cleanup()
		return root, noop, fmt.Errorf("extracting %s: %w", root, err)
	}
	return dir, cleanup, nil
}

func writeReport(stdout io.Writer, out string, body []byte) error {
	if out == "" {
		_, err := stdout.Write(body)
		return err
	}
	return os.WriteFile(out, body, 0o644)
}

func publishReport(ctx context.Context, app *App, s3 config.S3Config, a publish.Artifact) (publish.Location, error) {
	pub, err := app.NewPublish(publish.Config{
		Endpoint:  s3.Endpoint,
		Region:    s3.Region,
		Bucket:    s3.Bucket,
		Prefix:    s3.Prefix,
		AccessKey: s3.AccessKey,
		SecretKey: s3.SecretKey,
		UseSSL:    s3.UseSSL,
	})
	if err == nil {
		var loc publish.Location
		if loc, err = pub.Publish(ctx, a); err == nil {
			return loc, nil
		}
	}
	return publish.Location{}, issue.NewErrorContext().
		WithOperation("publish report").
		WithResource(s3.Bucket).
		WithSuggestion("Check publish.s3 settings with 'make-sps config show'").
		WithIssue(issue.PublishFailedId).
		Wrap(err).
		BuildError()
}

// recordRun stores res in the ledger and compares it with the device's
// previous run, if any. source is the root as given on the command line.
func recordRun(ctx context.Context, app *App, dsn, source string, res *report.Result) (int64, *ledger.Diff, error) {
	wrap := func(err error) error {
		return issue.NewErrorContext().
			WithOperation("record run in ledger").
			WithSuggestion("Check the DSN and that the database accepts connections").
			WithIssue(issue.LedgerFailedId).
			Wrap(err).
			BuildError()
	}

	l, err := app.NewLedger(ctx, dsn)
	if err != nil {
		return 0, nil, wrap(err)
	}
	defer l.Close()

	if err := l.Migrate(ctx); err != nil {
		return 0, nil, wrap(err)
	}

	rc := res.Plan.Context
	previous, err := l.Runs(ctx, rc.Device)
	if err != nil {
		return 0, nil, wrap(err)
	}

	runID, err := l.Record(ctx, ledger.Run{
		Device:    rc.Device,
		Version:   rc.Version,
		Algorithm: rc.Algorithm,
		Root:      source,
		Skipped:   res.Skipped,
	}, res.Records)
	if err != nil {
		return 0, nil, wrap(err)
	}

	if len(previous) == 0 {
		return runID, nil, nil
	}
	older, err := l.Files(ctx, previous[0].ID)
	if err != nil {
		return 0, nil, wrap(err)
	}
	diff := ledger.Compare(older, res.Records)
	app.Logger().Info("compared with previous run",
		"previous", previous[0].ID, "version", previous[0].Version,
		"added", len(diff.Added), "removed", len(diff.Removed), "modified", len(diff.Modified))
	return runID, &diff, nil
}

// wrapBuildError attaches the matching issue page and suggestions to err.
func wrapBuildError(err error, root string) error {
	ec := issue.NewErrorContext().WithResource(root).Wrap(err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, scan.ErrRootNotFound):
		ec.WithOperation("read delivery root").
			WithSuggestion("Pass an existing delivery directory or .zip archive").
			WithIssue(issue.RootNotFoundId)
	case errors.Is(err, manifest.ErrNotFound):
		ec.WithOperation("resolve project").
			WithSuggestions(
				"Create a manifest with 'make-sps manifest init "+root+"'",
				"Or pass --device to scan without a manifest",
			).
			WithIssue(issue.ManifestNotFoundId)
	case errors.Is(err, manifest.ErrInvalid):
		ec.WithOperation("load manifest").
			WithSuggestion("Run 'make-sps manifest validate' for details").
			WithIssue(issue.ManifestParseErrorId)
	case errors.Is(err, describe.ErrUnavailable):
		ec.WithOperation("create describer").
			WithSuggestion("Set describe.provider to \"none\" to build without descriptions").
			WithIssue(issue.DescriberUnavailableId)
	case errors.Is(err, fs.ErrPermission):
		ec.WithOperation("read delivery").
			WithIssue(issue.PermissionDeniedId)
	default:
		ec.WithOperation("build report")
	}
	return ec.BuildError()
}

func renderError(err error, resource string) error {
	return issue.NewErrorContext().
		WithOperation("write report").
		WithResource(resource).
		WithIssue(issue.RenderFailedId).
		Wrap(err).
		BuildError()
}

func printBuildSummary(w io.Writer, o buildOutcome) {
	res := o.result
	rc := res.Plan.Context

	fmt.Fprintln(w, TitleStyle.Render("SPS report"))
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Device:"), CmdStyle.Render(rc.Device))
	if rc.Version != "" {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Version:"), rc.Version)
	}
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Format:"), o.format)
	if o.out != "" {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Output:"), CmdStyle.Render(o.out))
	}

	var counts []string
	for _, c := range category.All() {
		if n := res.Stats.ByCategory[c]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", c.Label(), n))
		}
	}
	fmt.Fprintf(w, "  %s %d (%s)\n", SubtitleStyle.Render("Files:"), len(res.Records), strings.Join(counts, ", "))

	if res.Skipped > 0 {
		fmt.Fprintf(w, "  %s\n", WarningStyle.Render(fmt.Sprintf("! %d file(s) skipped", res.Skipped)))
	}
	if o.location != nil {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("Published:"), CmdStyle.Render(o.location.URI()))
	}
	if o.runID != 0 {
		fmt.Fprintf(w, "  %s %d\n", SubtitleStyle.Render("Ledger run:"), o.runID)
	}
	if o.diff != nil {
		if o.diff.Empty() {
			fmt.Fprintf(w, "  %s\n", VerboseStyle.Render("No changes since the previous run"))
		} else {
			fmt.Fprintf(w, "  %s +%d -%d ~%d\n", SubtitleStyle.Render("Changes:"),
				len(o.diff.Added), len(o.diff.Removed), len(o.diff.Modified))
		}
	}
	fmt.Fprintln(w, SuccessStyle.Render(fmt.Sprintf("✓ Done in %s", res.Stats.Elapsed.Round(time.Millisecond))))
}
