package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// PipelineConfig holds the effective constants of §6.4. The zero-value
// defaults applied by setDefaults are the version-1 values and must not
// change without bumping models.PipelineVersion. ScoreThreshold,
// ModelCanvasSize, CropSize, EmbeddingDim and BatchSize are loaded but not
// read by the pipeline, which uses the constants in packages detect,
// geometry, align, inference and pipeline; overriding them has no effect.
type PipelineConfig struct {
	ModelsDir       string  `yaml:"models_dir"`
	DetectorInput   string  `yaml:"detector_input_name"`
	DetectorOutput  string  `yaml:"detector_output_name"`
	EmbedderInput   string  `yaml:"embedder_input_name"`
	EmbedderOutput  string  `yaml:"embedder_output_name"`
	ScoreThreshold  float64 `yaml:"score_threshold"`
	ModelCanvasSize int     `yaml:"model_canvas_size"`
	CropSize        int     `yaml:"crop_size"`
	EmbeddingDim    int     `yaml:"embedding_dim"`
	BatchSize       int     `yaml:"batch_size"`
	IntraOpThreads  int     `yaml:"intra_op_threads"`
	InterOpThreads  int     `yaml:"inter_op_threads"`
	RemoteInference bool    `yaml:"remote_inference"`
	ClientTag       string  `yaml:"client_tag"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Pipeline.ScoreThreshold == 0 {
		cfg.Pipeline.ScoreThreshold = 0.7
	}
	if cfg.Pipeline.ModelCanvasSize == 0 {
		cfg.Pipeline.ModelCanvasSize = 640
	}
	if cfg.Pipeline.CropSize == 0 {
		cfg.Pipeline.CropSize = 112
	}
	if cfg.Pipeline.EmbeddingDim == 0 {
		cfg.Pipeline.EmbeddingDim = 192
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 50
	}
	if cfg.Pipeline.DetectorInput == "" {
		cfg.Pipeline.DetectorInput = "input"
	}
	if cfg.Pipeline.DetectorOutput == "" {
		cfg.Pipeline.DetectorOutput = "output"
	}
	if cfg.Pipeline.EmbedderInput == "" {
		cfg.Pipeline.EmbedderInput = "input"
	}
	if cfg.Pipeline.EmbedderOutput == "" {
		cfg.Pipeline.EmbedderOutput = "output"
	}
	if cfg.Pipeline.ClientTag == "" {
		cfg.Pipeline.ClientTag = "faceindex-go/1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACEINDEX_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FACEINDEX_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FACEINDEX_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FACEINDEX_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FACEINDEX_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FACEINDEX_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FACEINDEX_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FACEINDEX_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FACEINDEX_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FACEINDEX_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FACEINDEX_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FACEINDEX_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FACEINDEX_MODELS_DIR"); v != "" {
		cfg.Pipeline.ModelsDir = v
	}
	if v := os.Getenv("FACEINDEX_REMOTE_INFERENCE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Pipeline.RemoteInference = b
		}
	}
}
