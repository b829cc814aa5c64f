package passmgr

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PipelineDescriptor is the on-disk shape of a named pipeline declared
// outside O0/O1/O2, for projects that want to register custom pass
// orderings without recompiling the driver.
type PipelineDescriptor struct {
	Name   string   `yaml:"name"`
	Passes []string `yaml:"passes"`
}

// PipelineFile is the top-level shape of a pipeline YAML file: a list of
// named pipelines.
type PipelineFile struct {
	Pipelines []PipelineDescriptor `yaml:"pipelines"`
}

// LoadPipelineFile reads and parses a pipeline descriptor file.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	var pf PipelineFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline YAML: %w", err)
	}
	for _, p := range pf.Pipelines {
		if p.Name == "" {
			return nil, fmt.Errorf("pipeline descriptor missing required field: name")
		}
		if len(p.Passes) == 0 {
			return nil, fmt.Errorf("pipeline %q has no passes", p.Name)
		}
	}
	return &pf, nil
}

// RegisterFromFile loads path and registers every pipeline it declares
// into m, overriding O0/O1/O2 if present in the file (callers that want to
// protect the built-in pipelines should load the file before registering
// them).
func (m *Manager) RegisterFromFile(path string) error {
	pf, err := LoadPipelineFile(path)
	if err != nil {
		return err
	}
	for _, p := range pf.Pipelines {
		m.RegisterPipeline(p.Name, p.Passes)
	}
	return nil
}
