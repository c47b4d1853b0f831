package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Wechat    WechatConfig    `mapstructure:"wechat"`
	Events    EventsConfig    `mapstructure:"events"`
	Tasks     TasksConfig     `mapstructure:"tasks"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres | sqlite
	DSN      string `mapstructure:"dsn"`
	MaxIdle  int    `mapstructure:"max_idle"`
	MaxOpen  int    `mapstructure:"max_open"`
	LogLevel string `mapstructure:"log_level"` // silent | error | warn | info
}

// RedisConfig Addr 为空时使用进程内锁
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // s3 | cos | local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

type WechatConfig struct {
	Mode       string `mapstructure:"mode"` // mock | remote
	AppID      string `mapstructure:"app_id"`
	MchID      string `mapstructure:"mch_id"`
	APIKey     string `mapstructure:"api_key"`
	NotifyURL  string `mapstructure:"notify_url"`
	GatewayURL string `mapstructure:"gateway_url"`
}

type EventsConfig struct {
	Driver   string   `mapstructure:"driver"` // none | log | kafka | rabbitmq
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	URL      string   `mapstructure:"url"`
	Exchange string   `mapstructure:"exchange"`
}

type TasksConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	PaymentExpireAfter time.Duration `mapstructure:"payment_expire_after"`
	OrderExpireAfter   time.Duration `mapstructure:"order_expire_after"`
	CartIdleAfter      time.Duration `mapstructure:"cart_idle_after"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type RateLimitConfig struct {
	RPS              float64       `mapstructure:"rps"`
	Burst            int           `mapstructure:"burst"`
	CheckoutCooldown time.Duration `mapstructure:"checkout_cooldown"`
}

// ==================== 加载 ====================

var (
	current *Config
	mu      sync.RWMutex
)

// Load 读取配置文件与环境变量，path 为空时只读环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("JIUBA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	mu.Lock()
	current = cfg
	mu.Unlock()

	if path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloaded := &Config{}
			if err := v.Unmarshal(reloaded); err != nil {
				return
			}
			mu.Lock()
			current = reloaded
			hooks := append([]func(*Config){}, changeHooks...)
			mu.Unlock()
			for _, h := range hooks {
				h(reloaded)
			}
		})
		v.WatchConfig()
	}

	return cfg, nil
}

var changeHooks []func(*Config)

// OnChange 注册配置热更新回调
func OnChange(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	changeHooks = append(changeHooks, fn)
}

// Get 获取当前配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=jiuba port=5432 sslmode=disable TimeZone=Asia/Shanghai")
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 100)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "jiuba-secret-key-change-in-production")
	v.SetDefault("jwt.access_ttl", 2*time.Hour)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "jiuba")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_path", "./uploads")
	v.SetDefault("storage.endpoint", "http://localhost:8080/uploads")

	v.SetDefault("wechat.mode", "mock")
	v.SetDefault("wechat.app_id", "wx_mock_appid")
	v.SetDefault("wechat.mch_id", "mock_mch_id")
	v.SetDefault("wechat.notify_url", "http://localhost:8080/api/payments/wechat/callback")
	v.SetDefault("wechat.gateway_url", "https://api.mch.weixin.qq.com")

	v.SetDefault("events.driver", "log")
	v.SetDefault("events.topic", "jiuba.events")
	v.SetDefault("events.exchange", "jiuba_events")

	v.SetDefault("tasks.enabled", true)
	v.SetDefault("tasks.payment_expire_after", 30*time.Minute)
	v.SetDefault("tasks.order_expire_after", 24*time.Hour)
	v.SetDefault("tasks.cart_idle_after", 30*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.checkout_cooldown", 3*time.Second)
}
