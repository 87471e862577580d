package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Directory  DirectoryConfig  `mapstructure:"directory"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Suggestion SuggestionConfig `mapstructure:"suggestion"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Version   string `mapstructure:"version"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Network string `mapstructure:"network"`
	Addr    string `mapstructure:"addr"`
	Timeout string `mapstructure:"timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
}

// PostgreSQLConfig PostgreSQL配置
type PostgreSQLConfig struct {
	DSN    string `mapstructure:"dsn"`
	DBName string `mapstructure:"db_name"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// DirectoryConfig 用户目录服务配置
type DirectoryConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheMaxSize int           `mapstructure:"cache_max_size"`
}

// SyncConfig 联系人同步配置
type SyncConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`   // 每批处理的联系人数量
	WorkerCount    int           `mapstructure:"worker_count"` // 批内并发上限
	BatchDelay     time.Duration `mapstructure:"batch_delay"`  // 批与批之间的间隔
	MaxContacts    int           `mapstructure:"max_contacts"` // 单次同步联系人硬上限
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	GoogleAPIURL   string        `mapstructure:"google_api_url"`
	FacebookAPIURL string        `mapstructure:"facebook_api_url"`
}

// SuggestionConfig 好友推荐配置
type SuggestionConfig struct {
	MaxSuggestions   int           `mapstructure:"max_suggestions"`
	MinMutualFriends int           `mapstructure:"min_mutual_friends"`
	ExpireAfter      time.Duration `mapstructure:"expire_after"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"` // 0表示关闭周期清理
}

// LoadConfig 加载配置：config.yaml + 环境变量覆盖
func LoadConfig(serviceName string) *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, serviceName)

	// 配置文件可选，缺省时使用默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("failed to read config file: %v", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper, serviceName string) {
	v.SetDefault("app.name", serviceName)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.jwt_secret", "cashpop")

	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":21010")
	v.SetDefault("server.http.timeout", "30s")

	v.SetDefault("database.postgresql.dsn",
		"host=localhost user=postgres password=postgres dbname="+serviceName+"DB port=5432 sslmode=disable TimeZone=Asia/Seoul")
	v.SetDefault("database.postgresql.db_name", serviceName+"DB")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "relationship-events")

	v.SetDefault("directory.base_url", "http://localhost:21001")
	v.SetDefault("directory.timeout", "10s")
	v.SetDefault("directory.cache_ttl", "5m")
	v.SetDefault("directory.cache_max_size", 10000)

	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.worker_count", 5)
	v.SetDefault("sync.batch_delay", "100ms")
	v.SetDefault("sync.max_contacts", 5000)
	v.SetDefault("sync.fetch_timeout", "15s")
	v.SetDefault("sync.google_api_url", "https://people.googleapis.com/v1/people/me/connections")
	v.SetDefault("sync.facebook_api_url", "https://graph.facebook.com/v18.0/me/friends")

	v.SetDefault("suggestion.max_suggestions", 20)
	v.SetDefault("suggestion.min_mutual_friends", 1)
	v.SetDefault("suggestion.expire_after", "720h")
	v.SetDefault("suggestion.cleanup_interval", "0")
}
