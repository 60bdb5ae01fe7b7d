package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Redis       *redis.Client `yaml:"redis"`
	Server      Server        `yaml:"server"`
	Upload      Upload        `yaml:"upload"`
	Deepgram    Deepgram      `yaml:"deepgram"`
	Summarizer  Summarizer    `yaml:"summarizer"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

type Upload struct {
	MaxFileSize    int64 `yaml:"max_file_size"`
	ChunkSize      int64 `yaml:"chunk_size"`
	ChunkThreshold int64 `yaml:"chunk_threshold"`
	MaxParallel    int   `yaml:"max_parallel"`
}

type Deepgram struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	RetryWait time.Duration `yaml:"retry_wait"`
}

type Summarizer struct {
	URL         string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

const (
	defaultMaxFileSize    = 500 * 1024 * 1024
	defaultChunkSize      = 5 * 1024 * 1024
	defaultChunkThreshold = 50 * 1024 * 1024
	defaultMaxParallel    = 4
)

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	viper.SetDefault("upload.max_file_size", defaultMaxFileSize)
	viper.SetDefault("upload.chunk_size", defaultChunkSize)
	viper.SetDefault("upload.chunk_threshold", defaultChunkThreshold)
	viper.SetDefault("upload.max_parallel", defaultMaxParallel)
	viper.SetDefault("deepgram.retry_wait", 2*time.Second)
	viper.SetDefault("summarizer.temperature", 0.7)

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Upload: Upload{
			MaxFileSize:    viper.GetInt64("upload.max_file_size"),
			ChunkSize:      viper.GetInt64("upload.chunk_size"),
			ChunkThreshold: viper.GetInt64("upload.chunk_threshold"),
			MaxParallel:    viper.GetInt("upload.max_parallel"),
		},
		Deepgram: Deepgram{
			URL:       viper.GetString("deepgram.url"),
			APIKey:    viper.GetString("deepgram.api_key"),
			RetryWait: viper.GetDuration("deepgram.retry_wait"),
		},
		Summarizer: Summarizer{
			URL:         viper.GetString("summarizer.url"),
			APIKey:      viper.GetString("summarizer.api_key"),
			Model:       viper.GetString("summarizer.model"),
			Temperature: viper.GetFloat64("summarizer.temperature"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
		Redis:   redisClient,
	}, nil
}
