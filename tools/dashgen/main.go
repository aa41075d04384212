package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/tenant-storefront/tools/dashgen/dashboards"
	"github.com/donaldgifford/tenant-storefront/tools/dashgen/rules"
	"github.com/donaldgifford/tenant-storefront/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	maxSessions := flag.Int("max-sessions", 0, "override the sessions.max used by the active sessions gauge")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *maxSessions != 0 {
		cfg.MaxSessions = *maxSessions
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is one generated file relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool) error {
	artifacts, err := generate(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		fmt.Println("validation passed")
		return nil
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.OutputDir, a.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("dashgen: wrote %s\n", path)
	}
	return nil
}

// generate builds and validates every enabled artifact.
func generate(cfg Config) ([]artifact, error) {
	var (
		out  []artifact
		errs []error
	)

	if cfg.RulesEnabled {
		recording, alerts := rules.RecordingRules(), rules.AlertRules()
		for _, r := range []struct {
			name string
			cr   rules.PrometheusRule
		}{
			{name: "storefront-recording-rules.yaml", cr: recording},
			{name: "storefront-alerts.yaml", cr: alerts},
		} {
			if res := validate.Rules(r.cr, KnownMetrics); !res.Ok() {
				errs = append(errs, fmt.Errorf("%s: %v", r.name, res.Errors))
				continue
			}
			data, err := yaml.Marshal(r.cr)
			if err != nil {
				return nil, fmt.Errorf("marshaling %s: %w", r.name, err)
			}
			out = append(out, artifact{
				path: filepath.Join("prometheus", r.name),
				data: append([]byte(generatedHeader), data...),
			})
		}

		data, err := yaml.Marshal(rules.Merge(recording, alerts))
		if err != nil {
			return nil, fmt.Errorf("marshaling rule file: %w", err)
		}
		out = append(out, artifact{
			path: filepath.Join("prometheus", "rules", "storefront.rules.yaml"),
			data: append([]byte(generatedHeader), data...),
		})
	}

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview(cfg.MaxSessions).Build()
		if err != nil {
			return nil, fmt.Errorf("building dashboard: %w", err)
		}
		if res := validate.Dashboard(dash, KnownMetrics); !res.Ok() {
			errs = append(errs, fmt.Errorf("dashboard: %v", res.Errors))
		}
		data, err := json.MarshalIndent(dash, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling dashboard: %w", err)
		}
		out = append(out, artifact{
			path: filepath.Join("grafana", "data", dashboards.UID+".json"),
			data: append(data, '\n'),
		})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("validating artifacts: %w", err)
	}
	return out, nil
}
