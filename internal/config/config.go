package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Storage StorageConfig `mapstructure:"storage"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Stub    StubConfig    `mapstructure:"stub"`
}

type BackendConfig struct {
	Mode    string        `mapstructure:"mode"`
	DevURL  string        `mapstructure:"dev_url"`
	ProdURL string        `mapstructure:"prod_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	Namespace string `mapstructure:"namespace"`
}

type ChatConfig struct {
	// FreshOnEnter 为 true 时每次进入聊天都会清空会话，否则恢复本地记录
	FreshOnEnter bool   `mapstructure:"fresh_on_enter"`
	ErrorMessage string `mapstructure:"error_message"`
	MaxInputLen  int    `mapstructure:"max_input_len"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// 以下配置仅供 stubserver 使用

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type StubConfig struct {
	WardrobeDir     string        `mapstructure:"wardrobe_dir"`
	DefaultWardrobe []StubGarment `mapstructure:"default_wardrobe"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	OpenAI          OpenAIConfig  `mapstructure:"openai"`
}

type StubGarment struct {
	File string `mapstructure:"file"`
	Type string `mapstructure:"type"`
}

type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// BaseURL 按运行模式选择后端地址
func (c *Config) BaseURL() string {
	if c.Backend.Mode == ModeProduction {
		return strings.TrimRight(c.Backend.ProdURL, "/")
	}
	return strings.TrimRight(c.Backend.DevURL, "/")
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.mode", ModeDevelopment)
	v.SetDefault("backend.dev_url", "http://192.168.1.100:5000")
	v.SetDefault("backend.prod_url", "https://your-production-url.com")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.namespace", "fitroom")

	v.SetDefault("chat.fresh_on_enter", true)
	v.SetDefault("chat.error_message", "Sorry, there was an error processing your message. Please try again.")
	v.SetDefault("chat.max_input_len", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:19006",
		"http://localhost:19000",
		"http://localhost:8081",
		"http://127.0.0.1:19006",
		"http://127.0.0.1:19000",
		"http://127.0.0.1:8081",
	})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("stub.max_upload_bytes", 16<<20)
	v.SetDefault("stub.openai.model", "gpt-4o-mini")
	v.SetDefault("stub.openai.system_prompt", "You are a friendly and knowledgeable fashion assistant. Please provide helpful fashion advice.")
}

// Load 读取配置文件；configPath 为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("FITROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// 配置文件优先，未设置时回退到通用环境变量
	if c.Stub.OpenAI.APIKey == "" {
		c.Stub.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg = c
	return c, nil
}

func Get() *Config {
	return cfg
}
