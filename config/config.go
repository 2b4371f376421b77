package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/key"
	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	BackendPostgres  = "postgres"
	BackendGorm      = "gorm"
	BackendSnowflake = "snowflake"
)

var (
	ErrUnknownBackend = errors.New("unknown target backend")
	ErrChunkSize      = errors.New("chunk size must be a positive number")
)

type Config struct {
	Import  ImportCfg
	Target  TargetCfg
	Logger  LoggerCfg
	Metrics MetricsCfg
}

type ImportCfg struct {
	// InstancePrefix namespaces the identity keys written by this import instance
	InstancePrefix string `valid:"required"`
	ChunkSize      int    `valid:"required"`
	// ChunkSizes overrides ChunkSize per kind
	ChunkSizes      map[string]int
	DisableAuditing bool
	Workers         int
	// SourceDir holds one <kind>.csv or <kind>.xlsx file per kind
	SourceDir string `valid:"required"`
	Encoding  string
	// Kinds restricts the import to these kinds; empty imports every kind with a source file
	Kinds []string
}

type TargetCfg struct {
	Backend    string `valid:"required"`
	Connection string `valid:"required"`
	Database   string
	Schema     string
}

type LoggerCfg struct {
	Level string
	JSON  bool
}

type MetricsCfg struct {
	// Textfile is written in the node_exporter textfile format after the run; blank disables it
	Textfile string
}

var DefaultConfig = Config{
	Import: ImportCfg{
		InstancePrefix:  "",
		ChunkSize:       100,
		DisableAuditing: false,
		Workers:         4,
		SourceDir:       ".",
		Encoding:        "utf-8",
	},
	Target: TargetCfg{
		Backend:    BackendPostgres,
		Connection: "",
		Schema:     "public",
	},
	Logger: LoggerCfg{
		Level: "info",
		JSON:  false,
	},
}

func (c *Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return err
	}
	switch c.Target.Backend {
	case BackendPostgres, BackendGorm, BackendSnowflake:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Target.Backend)
	}
	if strings.TrimSpace(c.Import.InstancePrefix) == "" {
		return errors.New("Import.InstancePrefix: blank value")
	}
	if strings.Contains(c.Import.InstancePrefix, key.Separator) {
		return fmt.Errorf("Import.InstancePrefix: %q must not contain %q", c.Import.InstancePrefix, key.Separator)
	}
	if c.Import.ChunkSize < 1 {
		return fmt.Errorf("%w: Import.ChunkSize is %d", ErrChunkSize, c.Import.ChunkSize)
	}
	for kind, size := range c.Import.ChunkSizes {
		if size < 1 {
			return fmt.Errorf("%w: Import.ChunkSizes.%s is %d", ErrChunkSize, kind, size)
		}
	}
	return nil
}

// ChunkSizeFor returns the override of kind, or the default chunk size
func (c *Config) ChunkSizeFor(kind string) int {
	if size, ok := c.Import.ChunkSizes[strings.ToLower(kind)]; ok {
		return size
	}
	return c.Import.ChunkSize
}

func GetConf(defaultCfg Config, path string) (*Config, error) {
	cfg := defaultCfg
	viper.SetConfigFile(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvs(cfg)
	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return &cfg, nil
}

func WriteExampleConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	y := yaml.NewEncoder(f)
	defer y.Close()
	return y.Encode(DefaultConfig)
}

func bindEnvs(iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		fieldv := ifv.Field(i)
		t := ift.Field(i)
		name := strings.ToLower(t.Name)
		tag, exists := t.Tag.Lookup("mapstructure")
		if exists {
			name = tag
		}
		path := append(parts, name)
		switch fieldv.Kind() {
		case reflect.Struct:
			bindEnvs(fieldv.Interface(), path...)
		default:
			viper.BindEnv(strings.Join(path, "."))
		}
	}
}
