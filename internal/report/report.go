// SPDX-License-Identifier: MPL-2.0

// Package report runs the inventory pipeline: resolve the project context,
// scan the delivery, assemble records in parallel, reduce them into an
// inventory and lay out the report document.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/keinus/make-sps/internal/describe"
	"github.com/keinus/make-sps/internal/manifest"
	"github.com/keinus/make-sps/internal/scan"
	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/docmodel"
	"github.com/keinus/make-sps/pkg/fingerprint"
	"github.com/keinus/make-sps/pkg/inventory"
	"github.com/keinus/make-sps/pkg/record"
)

type (
	// Request describes one report build. Non-empty request fields override
	// the manifest.
	Request struct {
		// Root is the delivery directory.
		Root string
		// Manifest is an explicit manifest path. When empty, a manifest in
		// Root is used if present.
		Manifest string

		Device     string
		CSU        string
		Version    string
		PartNumber string
		Algorithm  fingerprint.Algorithm

		// Exclude lists extra doublestar patterns, relative to each scanned
		// directory.
		Exclude []string
		// EtcPatterns force matching root-relative paths into category.Etc.
		EtcPatterns []string
		// Workers bounds the assembly pool; zero means scan.DefaultWorkers.
		Workers int
	}

	// Config holds the long-lived service settings.
	Config struct {
		Classifier         *category.Classifier
		OnFingerprintError record.FailurePolicy
		// DefaultAlgorithm applies when neither the request nor a manifest
		// names one (default SHA256).
		DefaultAlgorithm fingerprint.Algorithm
		// Describe configures the per-build describer.
		Describe describe.Config
		// NewDescriber overrides describer construction. It is called once
		// per build.
		NewDescriber func(ctx context.Context) (record.Describer, error)
		Location     *time.Location
		Logger       *slog.Logger
	}

	// Service builds reports. It keeps no state between builds.
	Service struct {
		cfg Config
	}

	// Scope is one CSU to scan.
	Scope struct {
		CSU string
		// Dir is the absolute directory scanned for the CSU.
		Dir string
	}

	// Plan is the resolved input of a build.
	Plan struct {
		Root     string
		Manifest string
		Context  record.Context
		Scopes   []Scope
	}

	// Stats summarizes a build.
	Stats struct {
		Files      int
		Workers    int
		ByCategory map[category.Category]int
		Elapsed    time.Duration
	}

	// Result is the outcome of a successful build.
	Result struct {
		Plan      Plan
		Document  *docmodel.Document
		Inventory *inventory.Inventory
		// Records holds the numbered records in document order.
		Records []record.FileRecord
		// Skipped counts files dropped by record-level failures.
		Skipped int
		Stats   Stats
	}

	job struct {
		path string
		rc   record.Context
	}
)

// NewService returns a Service for cfg.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = &category.Classifier{}
	}
	if cfg.DefaultAlgorithm == "" {
		cfg.DefaultAlgorithm = fingerprint.SHA256
	}
	return &Service{cfg: cfg}
}

// Resolve turns req into a Plan. A manifest is required when req.Manifest
// is set, or when req.Device is empty; otherwise the whole root is one CSU.
// A missing root is reported before any manifest lookup.
func (s *Service) Resolve(req Request) (Plan, error) {
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %s: %w", scan.ErrRootNotFound, req.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %s: %w", scan.ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return Plan{}, fmt.Errorf("%w: %s is not a directory", scan.ErrRootNotFound, root)
	}
	plan := Plan{Root: root}

	manifestPath := req.Manifest
	if manifestPath == "" {
		found, findErr := manifest.Find(root)
		switch {
		case findErr == nil:
			manifestPath = found
		case errors.Is(findErr, manifest.ErrNotFound) && req.Device != "":
		default:
			return Plan{}, findErr
		}
	}

	var project manifest.Project
	if manifestPath != "" {
		f, loadErr := manifest.Load(manifestPath)
		if loadErr != nil {
			return Plan{}, loadErr
		}
		project = f.Project
		plan.Manifest, _ = filepath.Abs(manifestPath) //nolint:errcheck // Load already opened the path
	}

	plan.Context = record.Context{
		Device:           firstNonEmpty(req.Device, project.Device),
		CSU:              req.CSU,
		Version:          firstNonEmpty(req.Version, project.Version),
		PartNumberPrefix: firstNonEmpty(req.PartNumber, project.PartNumber),
		Algorithm:        fingerprint.Algorithm(firstNonEmpty(string(req.Algorithm), string(project.ChecksumType), string(s.cfg.DefaultAlgorithm))),
	}

	if len(project.CSU) == 0 {
		plan.Scopes = []Scope{{CSU: req.CSU, Dir: root}}
		return plan, nil
	}
	for _, c := range project.CSU {
		plan.Scopes = append(plan.Scopes, Scope{CSU: c.Name, Dir: filepath.Join(root, filepath.FromSlash(c.Dir))})
	}
	return plan, nil
}

// Build runs the pipeline for req.
func (s *Service) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	logger := s.cfg.Logger

	plan, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}

	describer, err := s.newDescriber(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating describer: %w", err)
	}
	asm, err := record.NewAssembler(record.Options{
		Classifier:         s.cfg.Classifier,
		Describer:          describer,
		EtcPatterns:        req.EtcPatterns,
		OnFingerprintError: s.cfg.OnFingerprintError,
		Location:           s.cfg.Location,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	jobs, err := s.jobs(ctx, plan, req.Exclude)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = scan.DefaultWorkers()
	}
	logger.Debug("assembling records", "root", plan.Root, "files", len(jobs), "workers", workers)

	outcomes, err := scan.Run(ctx, jobs, workers, func(ctx context.Context, j job) (record.FileRecord, error) {
		return asm.Assemble(ctx, j.path, plan.Root, j.rc)
	})
	if err != nil {
		return nil, err
	}

	records := make([]record.FileRecord, 0, len(outcomes))
	skipped := 0
	for i, o := range outcomes {
		if o.Err != nil {
			skipped++
			logger.Warn("skipping file", "path", jobs[i].path, "error", o.Err)
			continue
		}
		records = append(records, o.Value)
	}

	inv := inventory.Build(records)
	doc := docmodel.Build(inv, docmodel.Options{Device: plan.Context.Device, CSU: plan.Context.CSU})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Plan:      plan,
		Document:  doc,
		Inventory: inv,
		Records:   inv.Records(),
		Skipped:   skipped,
		Stats: Stats{
			Files:      len(jobs),
			Workers:    workers,
			ByCategory: inv.CountByCategory(),
			Elapsed:    time.Since(start),
		},
	}, nil
}

func (s *Service) jobs(ctx context.Context, plan Plan, exclude []string) ([]job, error) {
	var skip []string
	if plan.Manifest != "" {
		skip = append(skip, plan.Manifest)
	}

	var jobs []job
	for _, scope := range plan.Scopes {
		// Only the delivery root is fatal; a CSU directory listed in the
		// manifest but absent from the delivery contributes no files.
		if info, err := os.Stat(scope.Dir); err != nil || !info.IsDir() {
			s.cfg.Logger.Warn("CSU directory not found; skipping", "csu", scope.CSU, "dir", scope.Dir)
			continue
		}
		files, err := scan.Walk(ctx, scope.Dir, scan.Options{Exclude: exclude, Skip: skip, Logger: s.cfg.Logger})
		if err != nil {
			return nil, err
		}
		rc := plan.Context
		rc.CSU = scope.CSU
		for _, f := range files {
			jobs = append(jobs, job{path: f, rc: rc})
		}
	}
	return jobs, nil
}

func (s *Service) newDescriber(ctx context.Context) (record.Describer, error) {
	if s.cfg.NewDescriber != nil {
		return s.cfg.NewDescriber(ctx)
	}
	cfg := s.cfg.Describe
	if cfg.Logger == nil {
		cfg.Logger = s.cfg.Logger
	}
	return describe.New(ctx, cfg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
