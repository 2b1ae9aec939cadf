// Copyright (c) 2026 The Buxxx23 order authors
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

// Package config loads configuration from config.yaml, an optional .env
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/Buxxx23/order/internal/models"
)

// DefaultFolder is the OneDrive folder orders land in.
const DefaultFolder = "Bestellungen/Rotogal"

// GraphEnv holds the Graph keys read straight from the environment.
type GraphEnv struct {
	TenantID     string `envconfig:"TENANT_ID"`
	ClientID     string `envconfig:"CLIENT_ID"`
	ClientSecret string `envconfig:"CLIENT_SECRET"`
	UserUPN      string `envconfig:"GRAPH_USER_UPN"`
	Folder       string `envconfig:"ONEDRIVE_FOLDER"`
	EmailTo      string `envconfig:"EMAIL_TO"`
}

// OrderDefaults prefill the order form.
type OrderDefaults struct {
	Company          string `yaml:"company"`
	ContactPerson    string `yaml:"contact_person"`
	Phone            string `yaml:"phone"`
	Email            string `yaml:"email"`
	BillTo           string `yaml:"bill_to"`
	FooterLeft       string `yaml:"footer_left"`
	FooterRightExtra string `yaml:"footer_right_extra"`
	Supplier         string `yaml:"supplier"`
	Notice           string `yaml:"notice"`
}

// Config holds all configuration for the order desk.
type Config struct {
	Graph models.GraphSettings

	// Pipeline toggles preselected on the form.
	AutoUpload bool
	AutoEmail  bool

	Order OrderDefaults

	// Endpoints
	GraphBaseURL  string
	AuthorityHost string
	HTTPTimeout   time.Duration
	TokenCache    bool

	// Storage
	RedisURL    string
	DatabaseURL string
	DraftTTL    time.Duration

	// Server
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Graph struct {
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		UserUPN      string `yaml:"user_upn"`
		Folder       string `yaml:"folder"`
		EmailTo      string `yaml:"email_to"`
		AutoUpload   bool   `yaml:"auto_upload"`
		AutoEmail    bool   `yaml:"auto_email"`
		TokenCache   *bool  `yaml:"token_cache"`
	} `yaml:"graph"`
	Order OrderDefaults `yaml:"order"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads .env (if present), config.yaml (if present, with ${VAR}
// expansion) and the environment. Environment values win over the file.
func Load() (*Config, error) {
	envFile := envOrDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	var raw rawConfig
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only deployment.
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	var env GraphEnv
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read graph environment: %w", err)
	}

	cfg := &Config{
		Graph: models.GraphSettings{
			Credentials: models.Credentials{
				TenantID:     firstNonEmpty(env.TenantID, raw.Graph.TenantID),
				ClientID:     firstNonEmpty(env.ClientID, raw.Graph.ClientID),
				ClientSecret: firstNonEmpty(env.ClientSecret, raw.Graph.ClientSecret),
			},
			UserUPN:    firstNonEmpty(env.UserUPN, raw.Graph.UserUPN),
			Folder:     firstNonEmpty(env.Folder, raw.Graph.Folder, DefaultFolder),
			Recipients: models.ParseRecipients(firstNonEmpty(env.EmailTo, raw.Graph.EmailTo)),
		},
		AutoUpload:    raw.Graph.AutoUpload,
		AutoEmail:     raw.Graph.AutoEmail,
		Order:         withOrderDefaults(raw.Order),
		GraphBaseURL:  envOrDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		AuthorityHost: envOrDefault("AUTHORITY_HOST", ""),
		HTTPTimeout:   envOrDefaultDuration("HTTP_TIMEOUT", 60*time.Second),
		TokenCache:    raw.Graph.TokenCache == nil || *raw.Graph.TokenCache,
		RedisURL:      firstNonEmpty(os.Getenv("REDIS_URL"), raw.Redis.URL),
		DatabaseURL:   firstNonEmpty(os.Getenv("DATABASE_URL"), raw.Database.URL),
		DraftTTL:      envOrDefaultDuration("DRAFT_TTL", 12*time.Hour),
		Port:          envOrDefaultInt("PORT", 8080),
	}

	// The sender mailbox defaults to the contact address on the form.
	if cfg.Graph.UserUPN == "" {
		cfg.Graph.UserUPN = cfg.Order.Email
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}

	return cfg, nil
}

// withOrderDefaults fills unset form defaults with Rotogal's letterhead.
func withOrderDefaults(o OrderDefaults) OrderDefaults {
	o.Company = firstNonEmpty(o.Company, "Rotogal GmbH")
	o.ContactPerson = firstNonEmpty(o.ContactPerson, "Maurice Vennegerts")
	o.Phone = firstNonEmpty(o.Phone, "015221870004")
	o.Email = firstNonEmpty(o.Email, "vennegerts@rotogal.de")
	o.BillTo = firstNonEmpty(o.BillTo, "Rotogal GmbH\nDorfstr. 77\n49848 Wilsum\nGermany")
	o.FooterLeft = firstNonEmpty(o.FooterLeft,
		"Rotogal GmbH\nDorfstr. 77\nD-49848 Wilsum\nPhone "+o.Phone+"\nFax\n\n"+
			"Bank account:\nVolksbank Niedergrafschaft e.G.\nBIC: GENODEF1HOO\nIBAN: DE05280699262430498000\n\n"+
			"Managing Director:\nGilbert Mommertz")
	o.FooterRightExtra = firstNonEmpty(o.FooterRightExtra, "Tax-No: 55/208/12604\nCommercial register: HRB 208659")
	o.Supplier = firstNonEmpty(o.Supplier, "ROTOGAL, S.L.U.\nPOL. IND. ESPIÑERIA, PARC.36B\n15930 Boiro, A Coruña\nSpain")
	o.Notice = firstNonEmpty(o.Notice,
		"Customer protection, neutrality and on-time delivery are taken for granted. "+
			"Please make sure to give Rotogal reference numbers with any query (invoice, delivery note). "+
			"We kindly ask for a written confirmation of order.")
	return o
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
