package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DB          DBConfig
	Server      ServerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Logger      LoggerConfig
	Pipeline    PipelineConfig
	Fetcher     FetcherConfig
	Transcriber TranscriberConfig
	Generator   GeneratorConfig
	Gemini      GeminiConfig
	OpenAI      OpenAIConfig
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig selects the SQL driver. "sqlite" uses Path, "oracle" uses the
// host/port/user/password/name fields.
type DBConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	Debug          bool
	AllowedOrigins string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type LoggerConfig struct {
	Level string
	Env   string
}

type PipelineConfig struct {
	MaxConcurrent     int64
	MaxRetries        int
	RetryBackoff      time.Duration
	FetchTimeout      time.Duration
	TranscribeTimeout time.Duration
	GenerateTimeout   time.Duration
	// ResultCacheTTL > 0 caches built quizzes per video in Redis.
	ResultCacheTTL time.Duration
}

type FetcherConfig struct {
	YTDLPPath      string
	FFmpegLocation string
	PreferredCodec string
	ScratchDir     string
}

type TranscriberConfig struct {
	Backend       string
	Model         string
	MaxConcurrent int64
}

type GeneratorConfig struct {
	Backend         string
	Model           string
	Temperature     float64
	OllamaServerURL string
}

type GeminiConfig struct {
	APIKey string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

func setDefaults() {
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", "quizly.db")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", 20)
	viper.SetDefault("server.write_timeout", 600)
	viper.SetDefault("server.idle_timeout", 60)
	viper.SetDefault("server.allowed_origins", "http://localhost:5500,http://127.0.0.1:5500")
	viper.SetDefault("jwt.access_token_ttl", "15m")
	viper.SetDefault("jwt.refresh_token_ttl", "24h")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("pipeline.max_concurrent", 4)
	viper.SetDefault("pipeline.max_retries", 1)
	viper.SetDefault("pipeline.retry_backoff", "500ms")
	viper.SetDefault("pipeline.fetch_timeout", "5m")
	viper.SetDefault("pipeline.transcribe_timeout", "10m")
	viper.SetDefault("pipeline.generate_timeout", "2m")
	viper.SetDefault("pipeline.result_cache_ttl", "0s")
	viper.SetDefault("fetcher.ytdlp_path", "yt-dlp")
	viper.SetDefault("fetcher.preferred_codec", "m4a")
	viper.SetDefault("transcriber.backend", "gemini")
	viper.SetDefault("transcriber.max_concurrent", 2)
	viper.SetDefault("generator.backend", "gemini")
	viper.SetDefault("generator.temperature", 0.2)
	viper.SetDefault("generator.ollama_server_url", "http://localhost:11434")
}

func LoadConfig() (*Config, error) {
	// A missing .env is fine, real environment variables still apply.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../config")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		DB: DBConfig{
			Driver:   viper.GetString("db.driver"),
			Path:     viper.GetString("db.path"),
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
		},
		Server: ServerConfig{
			Port:           viper.GetInt("server.port"),
			ReadTimeout:    viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout:   viper.GetDuration("server.write_timeout") * time.Second,
			IdleTimeout:    viper.GetDuration("server.idle_timeout") * time.Second,
			Debug:          viper.GetBool("server.debug"),
			AllowedOrigins: viper.GetString("server.allowed_origins"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey:       viper.GetString("jwt.secret_key"),
			AccessTokenTTL:  viper.GetDuration("jwt.access_token_ttl"),
			RefreshTokenTTL: viper.GetDuration("jwt.refresh_token_ttl"),
		},
		Logger: LoggerConfig{
			Level: viper.GetString("logger.level"),
			Env:   viper.GetString("logger.env"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent:     viper.GetInt64("pipeline.max_concurrent"),
			MaxRetries:        viper.GetInt("pipeline.max_retries"),
			RetryBackoff:      viper.GetDuration("pipeline.retry_backoff"),
			FetchTimeout:      viper.GetDuration("pipeline.fetch_timeout"),
			TranscribeTimeout: viper.GetDuration("pipeline.transcribe_timeout"),
			GenerateTimeout:   viper.GetDuration("pipeline.generate_timeout"),
			ResultCacheTTL:    viper.GetDuration("pipeline.result_cache_ttl"),
		},
		Fetcher: FetcherConfig{
			YTDLPPath:      viper.GetString("fetcher.ytdlp_path"),
			FFmpegLocation: viper.GetString("fetcher.ffmpeg_location"),
			PreferredCodec: viper.GetString("fetcher.preferred_codec"),
			ScratchDir:     viper.GetString("fetcher.scratch_dir"),
		},
		Transcriber: TranscriberConfig{
			Backend:       viper.GetString("transcriber.backend"),
			Model:         viper.GetString("transcriber.model"),
			MaxConcurrent: viper.GetInt64("transcriber.max_concurrent"),
		},
		Generator: GeneratorConfig{
			Backend:         viper.GetString("generator.backend"),
			Model:           viper.GetString("generator.model"),
			Temperature:     viper.GetFloat64("generator.temperature"),
			OllamaServerURL: viper.GetString("generator.ollama_server_url"),
		},
		Gemini: GeminiConfig{
			APIKey: viper.GetString("gemini.api_key"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  viper.GetString("openai.api_key"),
			BaseURL: viper.GetString("openai.base_url"),
		},
	}

	// Override with environment variables if set
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.DB.Driver = driver
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		config.DB.Path = path
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.DB.Host = host
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.DB.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		config.DB.DBName = dbname
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.JWT.SecretKey = secret
	}
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		config.Gemini.APIKey = geminiKey
	}
	if openAIKey := os.Getenv("OPENAI_API_KEY"); openAIKey != "" {
		config.OpenAI.APIKey = openAIKey
	}
	if ollamaURL := os.Getenv("OLLAMA_SERVER_URL"); ollamaURL != "" {
		config.Generator.OllamaServerURL = ollamaURL
	}

	return config, nil
}

// GetDSN returns the driver specific data source name.
func (c *Config) GetDSN() string {
	if c.DB.Driver == "oracle" {
		return fmt.Sprintf("oracle://%s:%s@%s:%d/%s",
			c.DB.User,
			c.DB.Password,
			c.DB.Host,
			c.DB.Port,
			c.DB.DBName,
		)
	}
	return c.DB.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
