// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package generator

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

type AppConfig struct {
	OamPort       uint16               `yaml:"oamPort"`
	MetricsPort   uint16               `yaml:"metricsPort"`
	UseH2c        bool                 `yaml:"useH2c"`
	StartOnLaunch bool                 `yaml:"startOnLaunch"`
	StartupPolicy models.StartupPolicy `yaml:"startupPolicy"`
	Pacing        flow.PacingConfig    `yaml:"pacing"`
	/* where the run summary is written on stop, empty disables it */
	SummaryPath string     `yaml:"summaryPath"`
	Nats        NatsConfig `yaml:"nats"`
}

type NatsConfig struct {
	Url     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// DefaultConfig reproduces the plain generator: flows start as soon as they
// are read, no control API, no metrics endpoint, one failing bind aborts
// the run.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		StartOnLaunch: true,
		StartupPolicy: models.AllOrNothing,
		Pacing:        flow.DefaultPacingConfig(),
		Nats: NatsConfig{
			Subject: "trafficgen.reports",
		},
	}
}

// InitConfig loads configPath over the defaults, an empty path returns the
// defaults.
func InitConfig(configPath string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", configPath, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *AppConfig) validate() error {
	if !cfg.StartupPolicy.Valid() {
		return fmt.Errorf("unknown startup policy %q, expected %q or %q", cfg.StartupPolicy, models.AllOrNothing, models.BestEffort)
	}
	if cfg.Pacing.BurstSize < 0 {
		return fmt.Errorf("burst size must not be negative")
	}
	if cfg.Pacing.ReportInterval < 0 {
		return fmt.Errorf("report interval must not be negative")
	}
	if cfg.Nats.Url != "" && cfg.Nats.Subject == "" {
		return fmt.Errorf("a nats subject is required when nats.url is set")
	}
	return nil
}

func (cfg *AppConfig) Dumps() string {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		log.Printf("could not dump config: %v", err)
		return ""
	}
	return string(d)
}
