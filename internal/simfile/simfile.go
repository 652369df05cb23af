// Package simfile loads match instances and scenario batches from YAML or
// JSON documents. JSON parses through the same decoder, since every JSON
// document is valid YAML.
package simfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"matchcore/pkg/match"
)

// Instance is a self-contained match input: the two populations plus the
// identifiers deliberately outside them. External identifiers are dropped
// from ranked lists during the build instead of failing validation.
type Instance struct {
	Applicants         []match.Applicant `json:"applicants" yaml:"applicants"`
	Programs           []match.Program   `json:"programs" yaml:"programs"`
	ExternalApplicants []string          `json:"external_applicants,omitempty" yaml:"external_applicants,omitempty"`
	ExternalPrograms   []string          `json:"external_programs,omitempty" yaml:"external_programs,omitempty"`
}

// Batch is an ordered list of scenarios to evaluate against one instance.
type Batch struct {
	Scenarios []match.Scenario `json:"scenarios" yaml:"scenarios"`
}

// DecodeInstance parses an instance document and checks the identifiers the
// decoder can see. Full referential validation happens in Build.
func DecodeInstance(r io.Reader) (Instance, error) {
	var in Instance
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return Instance{}, errors.New("instance document is empty")
		}
		return Instance{}, fmt.Errorf("decode instance: %w", err)
	}
	if err := validateInstance(in); err != nil {
		return Instance{}, err
	}
	return in, nil
}

// LoadInstance reads and decodes the instance document at path.
func LoadInstance(path string) (Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return Instance{}, fmt.Errorf("open instance: %w", err)
	}
	defer f.Close()
	return DecodeInstance(f)
}

// DecodeBatch parses a scenario batch document. Scenario names must be
// present and unique so diffs and failures stay attributable.
func DecodeBatch(r io.Reader) (Batch, error) {
	var b Batch
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, errors.New("batch document is empty")
		}
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	if err := validateBatch(b); err != nil {
		return Batch{}, err
	}
	return b, nil
}

// LoadBatch reads and decodes the scenario batch document at path.
func LoadBatch(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open batch: %w", err)
	}
	defer f.Close()
	return DecodeBatch(f)
}

// Build assembles the validated preference index the instance describes.
func (in Instance) Build() (*match.PreferenceIndex, error) {
	var opts []match.BuildOption
	if len(in.ExternalApplicants) > 0 {
		opts = append(opts, match.WithExternalApplicants(in.ExternalApplicants...))
	}
	if len(in.ExternalPrograms) > 0 {
		opts = append(opts, match.WithExternalPrograms(in.ExternalPrograms...))
	}
	return match.Build(in.Applicants, in.Programs, opts...)
}

func validateInstance(in Instance) error {
	if len(in.Applicants) == 0 && len(in.Programs) == 0 {
		return errors.New("instance declares no applicants and no programs")
	}
	for i, a := range in.Applicants {
		if a.ID == "" {
			return fmt.Errorf("applicants[%d]: missing id", i)
		}
	}
	for i, p := range in.Programs {
		if p.ID == "" {
			return fmt.Errorf("programs[%d]: missing id", i)
		}
	}
	return nil
}

func validateBatch(b Batch) error {
	if len(b.Scenarios) == 0 {
		return errors.New("batch declares no scenarios")
	}
	seen := make(map[string]struct{}, len(b.Scenarios))
	for i, sc := range b.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenarios[%d]: missing name", i)
		}
		if _, dup := seen[sc.Name]; dup {
			return fmt.Errorf("scenarios[%d]: duplicate name %q", i, sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	return nil
}
