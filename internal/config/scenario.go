package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/errors"
)

// Scenario is a YAML description of one study: the population, the simulation
// settings, and optional sweep grids. Fields left out keep their defaults.
//
//	population:
//	  size: 100000
//	  slope: 2
//	simulation:
//	  precision: 0.95
//	  mode: influence-trim
//	cutoffs: [900, 920, 940, 960, 980, 1000]
type Scenario struct {
	Name       string               `yaml:"name"`
	Population run.PopulationParams `yaml:"population"`
	Simulation run.SimulationParams `yaml:"simulation"`
	Modes      []string             `yaml:"modes,omitempty"`
	Cutoffs    []int                `yaml:"cutoffs,omitempty"`
	Precisions []float64            `yaml:"precisions,omitempty"`
}

// DefaultScenario is the baseline study with no sweep grids.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:       "default",
		Population: run.DefaultPopulationParams(),
		Simulation: run.DefaultSimulationParams(),
	}
}

// LoadScenario reads a scenario file on top of DefaultScenario. An empty path
// returns the defaults.
func LoadScenario(path string) (*Scenario, error) {
	sc := DefaultScenario()
	if path == "" {
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %s", path)
	}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse scenario %s: %w", path, err))
	}
	if err := sc.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %s", path)
	}
	return sc, nil
}

// ParsedModes returns the scenario's modes, or every mode when none are listed.
func (s *Scenario) ParsedModes() ([]stats.CorrectionMode, error) {
	if len(s.Modes) == 0 {
		return stats.AllModes(), nil
	}
	modes := make([]stats.CorrectionMode, 0, len(s.Modes))
	for _, raw := range s.Modes {
		m, err := stats.ParseCorrectionMode(raw)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Validate checks the population, the simulation, and the sweep grids.
func (s *Scenario) Validate() error {
	mode, err := stats.ParseCorrectionMode(string(s.Simulation.Mode))
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	s.Simulation.Mode = mode

	if err := s.Population.Validate(); err != nil {
		return err
	}
	if err := s.Simulation.Validate(); err != nil {
		return err
	}
	if _, err := s.ParsedModes(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	for _, c := range s.Cutoffs {
		if c <= 0 {
			return errors.ConfigInvalid(fmt.Sprintf("cutoff %d must be > 0", c))
		}
	}
	for _, p := range s.Precisions {
		if p < 0 || p > 1 {
			return errors.ConfigInvalid(fmt.Sprintf("precision %v must be in [0,1]", p))
		}
	}
	return nil
}
