package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// RunConfig is the configuration section of a run report.
type RunConfig struct {
	Backend  string   `yaml:"backend"`
	Database string   `yaml:"database,omitempty"`
	Inputs   []string `yaml:"inputs"`
}

// RunReport is the YAML document written after a run.
type RunReport struct {
	Config  RunConfig `yaml:"config"`
	Summary Summary   `yaml:"summary"`
}

const reportTimeFormat = "2006-01-02_15-04-05.000"

// SaveYAML writes the report to dir as ingest-<timestamp>.yaml and returns
// the path written. An existing report is never overwritten: a numeric
// suffix is added until the name is free.
func SaveYAML(dir string, cfg RunConfig, sum Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(&RunReport{Config: cfg, Summary: sum})
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	base := "ingest-" + sum.Started.Format(reportTimeFormat)
	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		filename := filepath.Join(dir, name+".yaml")

		f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create YAML file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write YAML file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write YAML file: %w", err)
		}
		return filename, nil
	}
}

// LoadYAML reads a report written by SaveYAML.
func LoadYAML(path string) (RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunReport{}, fmt.Errorf("failed to read report: %w", err)
	}
	var report RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return RunReport{}, fmt.Errorf("failed to parse report: %w", err)
	}
	return report, nil
}

// SaveParquet writes one row per record outcome.
func SaveParquet(path string, outcomes []Outcome) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := parquet.WriteFile(path, outcomes); err != nil {
		return fmt.Errorf("failed to write parquet outcomes: %w", err)
	}
	return nil
}
