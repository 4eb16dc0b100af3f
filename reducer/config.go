package reducer

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "reducer"

type Config struct {
	BufferSize   int      `yaml:"bufferSize" json:"bufferSize" envconfig:"BUFFER_SIZE"`
	AllowedError float64  `yaml:"allowedError" json:"allowedError" envconfig:"ALLOWED_ERROR"`
	DataType     DataType `yaml:"dataType" json:"dataType" envconfig:"DATA_TYPE"`
}

func DefaultConfig() *Config {
	return &Config{
		BufferSize:   DefaultBufferSize,
		AllowedError: DefaultAllowedError,
		DataType:     DataTypeSingleValue,
	}
}

// LoadConfig reads a yaml file over the defaults, then lets REDUCER_* environment
// variables override it. An empty file name skips the file. Values are not checked here;
// NewDataReducer logs and replaces invalid ones.
func LoadConfig(file string) (cfg *Config, err error) {
	cfg = DefaultConfig()

	if file != "" {
		var d []byte

		d, err = os.ReadFile(file)
		if err != nil {
			return
		}

		err = yaml.Unmarshal(d, cfg)
		if err != nil {
			return
		}
	}

	err = envconfig.Process(EnvPrefix, cfg)

	return
}

func (cfg *Config) Options() []Option {
	return []Option{
		WithBufferSize(cfg.BufferSize),
		WithAllowedError(cfg.AllowedError),
		WithDataType(cfg.DataType),
	}
}
