package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Upload    UploadConfig    `mapstructure:"upload"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// AgentsConfig 云端 Agent 服务（thread/run/message）的连接配置
type AgentsConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	ListTimeout time.Duration `mapstructure:"list_timeout"` // 仅用于 Agent 列表查询
	// 聊天流不设置超时：对话响应可能合理地持续很长时间
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	VectorStoreTTL    int           `mapstructure:"vector_store_ttl_days"`
}

// RecommendConfig 推荐问题生成配置
type RecommendConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	MaxFiles     int   `mapstructure:"max_files"`
	MaxTotalSize int64 `mapstructure:"max_total_size"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("AICHAT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if cfg.Agents.APIKey == "" {
		if apiKey := os.Getenv("AGENTS_API_KEY"); apiKey != "" {
			cfg.Agents.APIKey = apiKey
		}
	}
	if cfg.Recommend.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			cfg.Recommend.APIKey = apiKey
		}
		// 推荐服务缺省复用 Agent 服务的凭证
		if cfg.Recommend.APIKey == "" {
			cfg.Recommend.APIKey = cfg.Agents.APIKey
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Agents.ListTimeout == 0 {
		c.Agents.ListTimeout = 10 * time.Second
	}
	if c.Agents.HeartbeatInterval == 0 {
		c.Agents.HeartbeatInterval = 30 * time.Second
	}
	if c.Agents.VectorStoreTTL == 0 {
		c.Agents.VectorStoreTTL = 1
	}
	if c.Upload.MaxFiles == 0 {
		c.Upload.MaxFiles = 5
	}
	if c.Upload.MaxTotalSize == 0 {
		c.Upload.MaxTotalSize = 100 * 1024 * 1024
	}
	if c.Recommend.MaxTokens == 0 {
		c.Recommend.MaxTokens = 150
	}
	if c.Recommend.Timeout == 0 {
		c.Recommend.Timeout = 30 * time.Second
	}
}

func Get() *Config {
	return cfg
}
