package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/APTrust/transfer-services/constants"
	"github.com/APTrust/transfer-services/util"
	"github.com/go-playground/validator/v10"
	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

type S3Credentials struct {
	Host      string
	KeyID     string
	SecretKey string
}

type Config struct {
	ConfigName             string `validate:"required"`
	LogDir                 string `validate:"required"`
	LogLevel               logging.Level
	MaxUnitCount           int    `validate:"gte=0"`
	NsqLookupd             string `validate:"required"`
	NsqURL                 string `validate:"required,url"`
	RedisDefaultDB         int    `validate:"gte=0"`
	RedisPassword          string
	RedisURL               string `validate:"required"`
	ReferentialFile        string `validate:"omitempty,file"`
	RegistryAPIKey         string
	RegistryAPIUser        string
	RegistryAPIVersion     string `validate:"required"`
	RegistryURL            string `validate:"required,url"`
	S3Credentials          map[string]S3Credentials
	S3Provider             string `validate:"required,oneof=AWS Local"`
	SiegfriedSignatureFile string `validate:"omitempty,file"`
	StagingBucket          string `validate:"required"`
	WorkingDir             string `validate:"required"`
}

var logLevels = map[string]logging.Level{
	"CRITICAL": logging.CRITICAL,
	"ERROR":    logging.ERROR,
	"WARNING":  logging.WARNING,
	"NOTICE":   logging.NOTICE,
	"INFO":     logging.INFO,
	"DEBUG":    logging.DEBUG,
}

// Returns a new config based on ENV vars APT_CONFIG_DIR and
// APT_SERVICES_CONFIG. Panics if the config is missing or invalid.
func NewConfig() *Config {
	config, err := LoadConfig(getEnvVars())
	if err != nil {
		panic(err)
	}
	return config
}

// LoadConfig reads .env.<envName> from configDir, then checks and
// prepares it.
func LoadConfig(configDir, envName string) (*Config, error) {
	config, err := loadConfig(configDir, envName)
	if err != nil {
		return nil, err
	}
	if err := config.expandPaths(); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if err := config.sanityCheck(); err != nil {
		return nil, err
	}
	if err := config.makeDirs(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadConfig(configDir, envName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configDir)
	v.SetConfigName(".env." + envName)
	v.SetConfigType("env")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("MAX_UNIT_COUNT", constants.DefaultUnitMaximum)
	v.SetDefault("REGISTRY_API_VERSION", "v3")
	v.SetDefault("S3_PROVIDER", constants.S3ClientLocal)
	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("Fatal error config file: %s", err)
	}
	logLevel, ok := logLevels[strings.ToUpper(v.GetString("LOG_LEVEL"))]
	if !ok {
		return nil, fmt.Errorf("Config %s: unknown LOG_LEVEL '%s'", envName, v.GetString("LOG_LEVEL"))
	}
	return &Config{
		ConfigName:         envName,
		LogDir:             v.GetString("LOG_DIR"),
		LogLevel:           logLevel,
		MaxUnitCount:       v.GetInt("MAX_UNIT_COUNT"),
		NsqLookupd:         v.GetString("NSQ_LOOKUPD"),
		NsqURL:             v.GetString("NSQ_URL"),
		RedisDefaultDB:     v.GetInt("REDIS_DEFAULT_DB"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisURL:           v.GetString("REDIS_URL"),
		ReferentialFile:    v.GetString("REFERENTIAL_FILE"),
		RegistryAPIKey:     v.GetString("REGISTRY_API_KEY"),
		RegistryAPIUser:    v.GetString("REGISTRY_API_USER"),
		RegistryAPIVersion: v.GetString("REGISTRY_API_VERSION"),
		RegistryURL:        v.GetString("REGISTRY_URL"),
		S3Credentials: map[string]S3Credentials{
			constants.S3ClientAWS: {
				Host:      v.GetString("S3_AWS_HOST"),
				KeyID:     v.GetString("S3_AWS_KEY"),
				SecretKey: v.GetString("S3_AWS_SECRET"),
			},
			constants.S3ClientLocal: {
				Host:      v.GetString("S3_LOCAL_HOST"),
				KeyID:     v.GetString("S3_LOCAL_KEY"),
				SecretKey: v.GetString("S3_LOCAL_SECRET"),
			},
		},
		S3Provider:             v.GetString("S3_PROVIDER"),
		SiegfriedSignatureFile: v.GetString("SIEGFRIED_SIGNATURE_FILE"),
		StagingBucket:          v.GetString("STAGING_BUCKET"),
		WorkingDir:             v.GetString("WORKING_DIR"),
	}, nil
}

func getEnvVars() (string, string) {
	configDir := getRequiredEnvVar("APT_CONFIG_DIR")
	envName := getRequiredEnvVar("APT_SERVICES_CONFIG")
	return configDir, envName
}

func getRequiredEnvVar(varName string) string {
	value := os.Getenv(varName)
	if value == "" {
		panic(fmt.Sprintf("Required env var %s not set", varName))
	}
	return value
}

// Expand ~ to home dir in path settings.
func (c *Config) expandPaths() error {
	var err error
	for _, setting := range []*string{&c.LogDir, &c.WorkingDir, &c.ReferentialFile, &c.SiegfriedSignatureFile} {
		if *setting, err = util.ExpandTilde(*setting); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err != nil {
		return fmt.Errorf("Config %s is invalid: %s", c.ConfigName, err.Error())
	}
	if c.S3Credentials[c.S3Provider].Host == "" {
		return fmt.Errorf("Config %s is invalid: S3 provider %s has no host", c.ConfigName, c.S3Provider)
	}
	return nil
}

// If this is dev or test env, don't let config point to any external
// services. This prevents a dev/test installation from touching data
// in demo and prod systems.
func (c *Config) sanityCheck() error {
	if c.ConfigName != "dev" && c.ConfigName != "test" {
		return nil
	}
	settings := map[string]string{
		"NSQ_URL":      c.NsqURL,
		"REDIS_URL":    c.RedisURL,
		"REGISTRY_URL": c.RegistryURL,
		"S3 host":      c.S3Credentials[c.S3Provider].Host,
	}
	for name, value := range settings {
		if !isLocal(value) {
			return fmt.Errorf("Config %s: %s must point to localhost, not %s", c.ConfigName, name, value)
		}
	}
	return nil
}

func isLocal(address string) bool {
	return strings.Contains(address, "localhost") || strings.Contains(address, "127.0.0.1")
}

func (c *Config) makeDirs() error {
	for _, dir := range []string{c.LogDir, c.WorkingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ManifestDir returns the directory a worker downloads the manifest
// of operationID into.
func (c *Config) ManifestDir(operationID string) string {
	return filepath.Join(c.WorkingDir, operationID)
}
