package conf

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 配置加载（数据库、缓存、推送通道等）

type Db struct {
	Driver   string `yaml:"driver"` // mysql | postgres | memory
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type AuthConfig struct {
	Mode       string `yaml:"mode"`        // opaque: Bearer 即用户id；jwt: HS256 token 的 sub 为用户id
	JwtSecret  string `yaml:"jwt-secret"`  // mode=jwt 时使用
	AdminToken string `yaml:"admin-token"` // 管理接口（裁决/归档质押池）
}

type KafkaConfig struct {
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group-id"`
}

type EmailConfig struct {
	Host     string `yaml:"smtp_host"`
	Port     int    `yaml:"smtp_port"`
	Username string `yaml:"smtp_user"`
	Password string `yaml:"smtp_password"`
	Sender   string `yaml:"smtp_sender"`
}

type Apns struct {
	Enabled    bool   `yaml:"enabled"`
	Topic      string `yaml:"topic"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	AuthKeyP8  string `yaml:"auth_key_file"` // .p8 私钥路径
	IsProd     bool   `yaml:"is_prod"`
	Expiration int    `yaml:"expiration_hours"`
}

type MarketConfig struct {
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AlertConfig 规则配额
type AlertConfig struct {
	DefaultPlan string         `yaml:"default-plan"`
	PlanLimits  map[string]int `yaml:"plan-limits"`
}

// DispatchConfig 分发策略中与用户偏好无关的系统级参数
type DispatchConfig struct {
	BatchMinCoins      int `yaml:"batch-min-coins"`      // 同一轮触发的币种数达到该值时合并为组合提醒
	PortfolioBatchSize int `yaml:"portfolio-batch-size"` // 持仓数量达到该值时合并为组合提醒
	MarketCrashCoins   int `yaml:"market-crash-coins"`   // 全局触发币种数达到该值时进入市场崩盘保护
}

type DeliveryConfig struct {
	Queue   string        `yaml:"queue"` // direct | kafka
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`
}

type SweepConfig struct {
	Interval     time.Duration `yaml:"interval"`
	BatchSize    int           `yaml:"batch-size"`
	BatchTimeout time.Duration `yaml:"batch-timeout"`
	Deadline     time.Duration `yaml:"deadline"`
}

type StakeConfig struct {
	Capacity int    `yaml:"capacity"`
	EggCost  int    `yaml:"egg-cost"`
	Policy   string `yaml:"policy"` // manual | quorum
	Quorum   int    `yaml:"quorum"`
}

type PollerConfig struct {
	BaseURL  string        `yaml:"base-url"`
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`
	RateLimitRPS int    `yaml:"rate-limit-rps"`

	Db       `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Email    EmailConfig    `yaml:"email"`
	Apns     Apns           `yaml:"apns"`
	Market   MarketConfig   `yaml:"market"`
	Alert    AlertConfig    `yaml:"alert"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Stake    StakeConfig    `yaml:"stake"`
	Poller   PollerConfig   `yaml:"poller"`
}

var AppConfig Config

// LoadConfig 读取 yaml，之后用环境变量（含 .env）覆盖连接信息
func LoadConfig(path string) error {
	// .env 不存在时忽略
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	cfg.applyEnv()
	AppConfig = cfg
	return nil
}

// Default 未在 yaml 中出现的字段使用这些默认值
func Default() Config {
	return Config{
		AppName:      "coco",
		Listen:       ":12180",
		Mode:         "release",
		Language:     "en",
		MaxPingCount: 10,
		RateLimitRPS: 20,
		Db:           Db{Driver: "memory"},
		Log:          LogConfig{Level: "info", Console: true},
		Auth:         AuthConfig{Mode: "opaque"},
		Kafka:        KafkaConfig{Topic: "coco_notification_delivery", GroupID: "coco_delivery_group"},
		Market:       MarketConfig{Timeout: 10 * time.Second},
		Alert: AlertConfig{
			DefaultPlan: "free",
			PlanLimits:  map[string]int{"free": 20, "pro": 100},
		},
		Dispatch: DispatchConfig{
			BatchMinCoins:      3,
			PortfolioBatchSize: 20,
			MarketCrashCoins:   50,
		},
		Delivery: DeliveryConfig{Queue: "direct", Workers: 4, Timeout: 5 * time.Second},
		Sweep: SweepConfig{
			Interval:     5 * time.Minute,
			BatchSize:    50,
			BatchTimeout: 20 * time.Second,
			Deadline:     3 * time.Minute,
		},
		Stake:  StakeConfig{Capacity: 6, EggCost: 2, Policy: "manual", Quorum: 3},
		Poller: PollerConfig{BaseURL: "http://localhost:12180", Interval: 30 * time.Second, Limit: 50},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Db.Driver = v
	}
	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	if dbUser != "" && dbPass != "" && dbHost != "" {
		c.Db.Username = dbUser
		c.Db.Password = dbPass
		c.Db.Host = dbHost
		if v := os.Getenv("DB_PORT"); v != "" {
			c.Db.Port = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			c.Db.DbName = v
		}
	}

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	if redisHost != "" && redisPort != "" {
		c.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		c.Kafka.Broker = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Auth.AdminToken = v
	}
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sweep.Interval = time.Duration(n) * time.Second
		}
	}
}
