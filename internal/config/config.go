package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	SICAIDB   DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Worker    WorkerConfig
	Import    ImportConfig
	WordPress WordPressConfig
	Media     MediaConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	MaxRetries    int
	Concurrency   int
}

// ImportConfig - параметры выполнения импорта
type ImportConfig struct {
	FetchTimeout     time.Duration
	MediaTimeout     time.Duration
	BatchConcurrency int
	LockTTL          time.Duration
	DistributedLock  bool
	TargetSRID       int
}

type WordPressConfig struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	DefaultLocale  string
}

// MediaConfig - откуда скачивать медиа и куда их складывать
type MediaConfig struct {
	Disk             DiskConfig
	SICAIBaseURL     string
	DownloadMaxBytes int64
}

// StorageConfig - диски для CSV источников и файлов маппинга
type StorageConfig struct {
	CSV     DiskConfig
	Mapping DiskConfig
}

// DiskConfig описывает blob-хранилище: локальный диск или GCS bucket
type DiskConfig struct {
	Driver string
	Root   string
	Bucket string
	Prefix string
}

// Load читает .env (если он есть) и переменные окружения
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if _, err := os.Stat(".env"); err == nil {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(viper.GetViper()), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("API_HOST"),
			Port:         v.GetInt("API_PORT"),
			Env:          v.GetString("API_ENV"),
			AllowOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: databaseConfig(v, "DB"),
		SICAIDB:  databaseConfig(v, "SICAI_DB"),
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:       v.GetBool("WORKER_ENABLED"),
			ConsumerGroup: v.GetString("WORKER_CONSUMER_GROUP"),
			MaxRetries:    v.GetInt("WORKER_MAX_RETRIES"),
			Concurrency:   v.GetInt("WORKER_CONCURRENCY"),
		},
		Import: ImportConfig{
			FetchTimeout:     time.Duration(v.GetInt("IMPORT_FETCH_TIMEOUT")) * time.Second,
			MediaTimeout:     time.Duration(v.GetInt("IMPORT_MEDIA_TIMEOUT")) * time.Second,
			BatchConcurrency: v.GetInt("IMPORT_BATCH_CONCURRENCY"),
			LockTTL:          time.Duration(v.GetInt("IMPORT_LOCK_TTL")) * time.Second,
			DistributedLock:  v.GetBool("IMPORT_DISTRIBUTED_LOCK"),
			TargetSRID:       v.GetInt("TARGET_SRID"),
		},
		WordPress: WordPressConfig{
			RequestTimeout: time.Duration(v.GetInt("WP_REQUEST_TIMEOUT")) * time.Second,
			RateLimitRPS:   v.GetFloat64("WP_RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("WP_RATE_LIMIT_BURST"),
			DefaultLocale:  v.GetString("WP_DEFAULT_LOCALE"),
		},
		Media: MediaConfig{
			Disk: DiskConfig{
				Driver: v.GetString("MEDIA_DISK"),
				Root:   v.GetString("MEDIA_LOCAL_ROOT"),
				Bucket: v.GetString("MEDIA_GCS_BUCKET"),
				Prefix: v.GetString("MEDIA_GCS_PREFIX"),
			},
			SICAIBaseURL:     v.GetString("SICAI_MEDIA_BASE_URL"),
			DownloadMaxBytes: v.GetInt64("MEDIA_DOWNLOAD_MAX_BYTES"),
		},
		Storage: StorageConfig{
			CSV: DiskConfig{
				Driver: v.GetString("CSV_DISK"),
				Root:   v.GetString("CSV_DISK_ROOT"),
				Bucket: v.GetString("CSV_GCS_BUCKET"),
			},
			Mapping: DiskConfig{
				Driver: v.GetString("MAPPING_DISK"),
				Root:   v.GetString("MAPPING_DISK_ROOT"),
				Bucket: v.GetString("MAPPING_GCS_BUCKET"),
			},
		},
	}

	applyDefaults(cfg)
	return cfg
}

func databaseConfig(v *viper.Viper, prefix string) DatabaseConfig {
	return DatabaseConfig{
		Host:            v.GetString(prefix + "_HOST"),
		Port:            v.GetInt(prefix + "_PORT"),
		User:            v.GetString(prefix + "_USER"),
		Password:        v.GetString(prefix + "_PASSWORD"),
		DBName:          v.GetString(prefix + "_NAME"),
		SSLMode:         v.GetString(prefix + "_SSLMODE"),
		MaxConns:        v.GetInt(prefix + "_MAX_CONNS"),
		MaxIdleConns:    v.GetInt(prefix + "_MAX_IDLE_CONNS"),
		ConnMaxLifetime: time.Duration(v.GetInt(prefix+"_CONN_MAX_LIFETIME")) * time.Second,
		ConnMaxIdleTime: time.Duration(v.GetInt(prefix+"_CONN_MAX_IDLE_TIME")) * time.Second,
	}
}

// Set default values if not provided
func applyDefaults(cfg *Config) {
	if cfg.Worker.ConsumerGroup == "" {
		cfg.Worker.ConsumerGroup = "outsource-import-workers"
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 4
	}
	if cfg.Import.FetchTimeout == 0 {
		cfg.Import.FetchTimeout = 30 * time.Second
	}
	if cfg.Import.MediaTimeout == 0 {
		cfg.Import.MediaTimeout = 60 * time.Second
	}
	if cfg.Import.BatchConcurrency <= 0 {
		cfg.Import.BatchConcurrency = 4
	}
	if cfg.Import.LockTTL == 0 {
		cfg.Import.LockTTL = 120 * time.Second
	}
	if cfg.Import.TargetSRID == 0 {
		cfg.Import.TargetSRID = 4326
	}
	if cfg.WordPress.RequestTimeout == 0 {
		cfg.WordPress.RequestTimeout = 30 * time.Second
	}
	if cfg.WordPress.RateLimitRPS == 0 {
		cfg.WordPress.RateLimitRPS = 5
	}
	if cfg.WordPress.RateLimitBurst == 0 {
		cfg.WordPress.RateLimitBurst = 10
	}
	if cfg.WordPress.DefaultLocale == "" {
		cfg.WordPress.DefaultLocale = "it"
	}
	if cfg.Media.Disk.Driver == "" {
		cfg.Media.Disk.Driver = "local"
	}
	if cfg.Media.Disk.Root == "" {
		cfg.Media.Disk.Root = "storage/osfmedia"
	}
	if cfg.Media.SICAIBaseURL == "" {
		cfg.Media.SICAIBaseURL = "https://sentieroitaliamappe.cai.it/index.php/view/media/getMedia?repository=sicaipubblico&project=SICAI_Pubblico&path="
	}
	if cfg.Media.DownloadMaxBytes == 0 {
		cfg.Media.DownloadMaxBytes = 50 << 20
	}
	if cfg.Storage.CSV.Driver == "" {
		cfg.Storage.CSV.Driver = "local"
	}
	if cfg.Storage.CSV.Root == "" {
		cfg.Storage.CSV.Root = "storage/importer"
	}
	if cfg.Storage.Mapping.Driver == "" {
		cfg.Storage.Mapping.Driver = "local"
	}
	if cfg.Storage.Mapping.Root == "" {
		cfg.Storage.Mapping.Root = "storage/mapping"
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}
