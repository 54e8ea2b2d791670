package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfigPath = "config/config.toml"
	ConfigFileName    = "config.toml"
	ServiceName       = "zkid-service"
	ConfigExtension   = ".toml"

	DefaultServiceEndpoint = "http://localhost:8080"

	EnvironmentDev  Environment = "dev"
	EnvironmentTest Environment = "test"
	EnvironmentProd Environment = "prod"

	VerifierModeStrict      = "strict"
	VerifierModeTrustedRoot = "trusted-root"

	ConfigPathKey EnvironmentVariable = "CONFIG_PATH"
)

type (
	Environment         string
	EnvironmentVariable string
)

func (e EnvironmentVariable) String() string {
	return string(e)
}

type ZKIDServiceConfig struct {
	conf.Version
	Server   ServerConfig   `toml:"server"`
	Services ServicesConfig `toml:"services"`
}

// ServerConfig represents configurable properties for the HTTP server
type ServerConfig struct {
	Environment        Environment   `toml:"env" conf:"default:dev"`
	APIHost            string        `toml:"api_host" conf:"default:0.0.0.0:8080"`
	JagerHost          string        `toml:"jager_host" conf:"http://jaeger:14268/api/traces"`
	JagerEnabled       bool          `toml:"jager_enabled" conf:"default:false"`
	ReadTimeout        time.Duration `toml:"read_timeout" conf:"default:5s"`
	WriteTimeout       time.Duration `toml:"write_timeout" conf:"default:5s"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout" conf:"default:5s"`
	LogLocation        string        `toml:"log_location" conf:"default:log"`
	LogLevel           string        `toml:"log_level" conf:"default:debug"`
	EnableAllowAllCORS bool          `toml:"enable_allow_all_cors" conf:"default:false"`
}

// ServicesConfig represents configurable properties for the components of the service
type ServicesConfig struct {
	// a single storage provider works for all services
	StorageProvider string `toml:"storage" conf:"default:memory"`
	BoltFilePath    string `toml:"bolt_file_path"`
	RedisAddress    string `toml:"redis_address"`
	RedisPassword   string `toml:"redis_password"`
	ServiceEndpoint string `toml:"service_endpoint"`

	LedgerConfig       LedgerServiceConfig       `toml:"ledger,omitempty"`
	GroupConfig        GroupServiceConfig        `toml:"group,omitempty"`
	VerificationConfig VerificationServiceConfig `toml:"verification,omitempty"`
}

// BaseServiceConfig represents configurable properties for a specific component of the service
type BaseServiceConfig struct {
	Name            string `toml:"name"`
	ServiceEndpoint string `toml:"service_endpoint"`
}

type LedgerServiceConfig struct {
	*BaseServiceConfig
	// Path to the JSON roster of pre-approved credentials, loaded once at startup.
	CredentialFile string `toml:"credential_file"`
}

func (l *LedgerServiceConfig) IsEmpty() bool {
	if l == nil {
		return true
	}
	return reflect.DeepEqual(l, &LedgerServiceConfig{})
}

type GroupServiceConfig struct {
	*BaseServiceConfig
	// CacheTTL bounds how stale a cached group root may be. Zero disables caching,
	// which is the safe default for multi-instance deployments.
	CacheTTL time.Duration `toml:"cache_ttl"`
}

func (g *GroupServiceConfig) IsEmpty() bool {
	if g == nil {
		return true
	}
	return reflect.DeepEqual(g, &GroupServiceConfig{})
}

type VerificationServiceConfig struct {
	*BaseServiceConfig
	// Mode selects the proof checking strategy: strict or trusted-root.
	Mode string `toml:"mode"`
	// Path to the snarkjs-format Groth16 verification key. Required in strict mode.
	VerificationKeyFile string `toml:"verification_key_file"`
	// Hard deadline for the cryptographic check.
	ProofCheckTimeout time.Duration `toml:"proof_check_timeout"`
}

func (v *VerificationServiceConfig) IsEmpty() bool {
	if v == nil {
		return true
	}
	return reflect.DeepEqual(v, &VerificationServiceConfig{})
}

// LoadConfig attempts to load a TOML config file from the given path, and coerce it into our object model.
// Before loading, defaults are applied on certain properties, which are overwritten if specified in the TOML file.
func LoadConfig(path string) (*ZKIDServiceConfig, error) {
	// no path, load default config
	defaultConfig := false
	if path == "" {
		logrus.Info("no config path provided, loading default config...")
		defaultConfig = true
	} else if filepath.Ext(path) != ConfigExtension {
		return nil, fmt.Errorf("path<%s> did not match the expected TOML format", path)
	}

	var config ZKIDServiceConfig

	// parse and apply defaults
	if err := conf.Parse(os.Args[1:], ServiceName, &config); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "parsing config")
			}
			fmt.Println(usage)
			return nil, nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(ServiceName, &config)
			if err != nil {
				return nil, errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil, nil
		}
		return nil, errors.Wrap(err, "parsing config")
	}

	if defaultConfig {
		config.Services = ServicesConfig{
			StorageProvider: "memory",
			ServiceEndpoint: DefaultServiceEndpoint,
			LedgerConfig: LedgerServiceConfig{
				BaseServiceConfig: &BaseServiceConfig{Name: "ledger"},
				CredentialFile:    "config/credentials.json",
			},
			GroupConfig: GroupServiceConfig{
				BaseServiceConfig: &BaseServiceConfig{Name: "group"},
			},
			VerificationConfig: VerificationServiceConfig{
				BaseServiceConfig: &BaseServiceConfig{Name: "verification"},
				Mode:              VerifierModeTrustedRoot,
				ProofCheckTimeout: 30 * time.Second,
			},
		}
	} else {
		// load from TOML file
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, errors.Wrapf(err, "could not load config: %s", path)
		}
		if config.Services.VerificationConfig.ProofCheckTimeout == 0 {
			config.Services.VerificationConfig.ProofCheckTimeout = 30 * time.Second
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return &config, nil
}

// Validate rejects configurations that must never reach a deployment, most
// importantly weakened verification or volatile storage in prod.
func (c *ZKIDServiceConfig) Validate() error {
	switch c.Server.Environment {
	case EnvironmentDev, EnvironmentTest, EnvironmentProd:
	default:
		return fmt.Errorf("unknown environment: %s", c.Server.Environment)
	}

	mode := c.Services.VerificationConfig.Mode
	if mode != "" && mode != VerifierModeStrict && mode != VerifierModeTrustedRoot {
		return fmt.Errorf("unknown verification mode: %s", mode)
	}

	if c.Server.Environment == EnvironmentProd {
		if mode != VerifierModeStrict {
			return errors.New("production deployments require strict proof verification")
		}
		if c.Services.StorageProvider == "memory" {
			return errors.New("production deployments require durable storage")
		}
	}
	if mode == VerifierModeStrict && c.Services.VerificationConfig.VerificationKeyFile == "" {
		return errors.New("strict verification requires a verification key file")
	}
	return nil
}
