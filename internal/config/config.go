package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"difal-service/internal/core/difal"
	"difal-service/internal/core/rates"
	"difal-service/internal/domain"
	"difal-service/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      logger.Config
	Auth     AuthConfig
	Difal    DifalConfig
	Benefits BenefitsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// AuthConfig holds the credentials accepted on /api/v1. Both empty disables auth.
type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	APIKeyHash string `mapstructure:"api_key_hash"`
}

// DifalConfig holds the default calculation settings of every run.
type DifalConfig struct {
	OriginUF         string   `mapstructure:"origin_uf"`
	DestinationUF    string   `mapstructure:"destination_uf"`
	DestinationShare float64  `mapstructure:"destination_share"`
	Methodology      string   `mapstructure:"methodology"`
	FCPOverride      float64  `mapstructure:"fcp_override"`
	Precision        int      `mapstructure:"precision"`
	UseParticipantUF bool     `mapstructure:"use_participant_uf"`
	RelevantCFOPs    []string `mapstructure:"relevant_cfops"`
}

// BenefitsConfig selects where per-item benefits come from.
type BenefitsConfig struct {
	Source              string `mapstructure:"source"` // none, file, firestore
	File                string `mapstructure:"file"`
	FirestoreProject    string `mapstructure:"firestore_project"`
	FirestoreDatabase   string `mapstructure:"firestore_database"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
}

// Benefit sources.
const (
	BenefitsNone      = "none"
	BenefitsFile      = "file"
	BenefitsFirestore = "firestore"
)

// Load reads configuration from environment variables with the DIFAL_ prefix.
// Variables in envFile are loaded first without overriding the environment; a
// missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("erro ao carregar %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("DIFAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8083")
	v.SetDefault("server.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_key_hash", "")

	v.SetDefault("difal.origin_uf", "")
	v.SetDefault("difal.destination_uf", "")
	v.SetDefault("difal.destination_share", 100)
	v.SetDefault("difal.methodology", "")
	v.SetDefault("difal.fcp_override", -1)
	v.SetDefault("difal.precision", 2)
	v.SetDefault("difal.use_participant_uf", true)
	v.SetDefault("difal.relevant_cfops", strings.Join(rates.DefaultRelevantCFOPs, ","))

	v.SetDefault("benefits.source", BenefitsNone)
	v.SetDefault("benefits.file", "")
	v.SetDefault("benefits.firestore_project", "")
	v.SetDefault("benefits.firestore_database", "")
	v.SetDefault("benefits.firestore_collection", "difal_benefits")

	cfg := &Config{}
	cfg.Server = ServerConfig{
		Port:        strings.TrimPrefix(v.GetString("server.port"), ":"),
		Environment: v.GetString("server.environment"),
	}
	cfg.Log = logger.Config{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
	cfg.Auth = AuthConfig{
		JWTSecret:  v.GetString("auth.jwt_secret"),
		APIKeyHash: v.GetString("auth.api_key_hash"),
	}
	cfg.Difal = DifalConfig{
		OriginUF:         v.GetString("difal.origin_uf"),
		DestinationUF:    v.GetString("difal.destination_uf"),
		DestinationShare: v.GetFloat64("difal.destination_share"),
		Methodology:      v.GetString("difal.methodology"),
		FCPOverride:      v.GetFloat64("difal.fcp_override"),
		Precision:        v.GetInt("difal.precision"),
		UseParticipantUF: v.GetBool("difal.use_participant_uf"),
		RelevantCFOPs:    splitList(v.GetString("difal.relevant_cfops")),
	}
	cfg.Benefits = BenefitsConfig{
		Source:              strings.ToLower(v.GetString("benefits.source")),
		File:                v.GetString("benefits.file"),
		FirestoreProject:    v.GetString("benefits.firestore_project"),
		FirestoreDatabase:   v.GetString("benefits.firestore_database"),
		FirestoreCollection: v.GetString("benefits.firestore_collection"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that can be judged without reference tables.
func (c *Config) Validate() error {
	switch c.Benefits.Source {
	case BenefitsNone, "":
	case BenefitsFile:
		if c.Benefits.File == "" {
			return &domain.ConfigurationError{Field: "benefits.file", Reason: "arquivo de benefícios não informado"}
		}
	case BenefitsFirestore:
		if c.Benefits.FirestoreProject == "" {
			return &domain.ConfigurationError{Field: "benefits.firestore_project", Reason: "projeto do Firestore não informado"}
		}
	default:
		return &domain.ConfigurationError{
			Field:      "benefits.source",
			Value:      c.Benefits.Source,
			Reason:     "origem de benefícios desconhecida",
			Suggestion: BenefitsFile,
		}
	}
	return nil
}

// EngineConfig converts the defaults into a per-run engine configuration. A
// negative FCP override means none.
func (d DifalConfig) EngineConfig() difal.Config {
	share := d.DestinationShare
	cfg := difal.Config{
		OriginUF:         d.OriginUF,
		DestinationUF:    d.DestinationUF,
		DestinationShare: &share,
		Methodology:      domain.Methodology(strings.ToUpper(strings.TrimSpace(d.Methodology))),
		Precision:        d.Precision,
		UseParticipantUF: d.UseParticipantUF,
	}
	if d.FCPOverride >= 0 {
		fcp := d.FCPOverride
		cfg.FCPOverride = &fcp
	}
	return cfg
}

// CFOPTable builds the relevance table from the configured codes.
func (d DifalConfig) CFOPTable() (rates.CFOPTable, error) {
	if len(d.RelevantCFOPs) == 0 {
		return rates.DefaultCFOPTable(), nil
	}
	return rates.NewCFOPTable(d.RelevantCFOPs)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
