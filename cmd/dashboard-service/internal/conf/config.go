package conf

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// 数据源模式
const (
	SourceModeMock = "mock" // 进程内合成数据（缺省）
	SourceModeLive = "live" // Redis + ClickHouse 真实后端
)

// Config 应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Dashboard     DashboardConfig     `mapstructure:"dashboard"`
	Database      DatabaseConfig      `mapstructure:"database"`
	ClickHouse    ClickHouseConfig    `mapstructure:"clickhouse"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Resilience    ResilienceConfig    `mapstructure:"resilience"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Tenant        TenantConfig        `mapstructure:"tenant"`
	Discovery     DiscoveryConfig     `mapstructure:"discovery"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	// AllowedOrigins WebSocket Origin 白名单，空表示全部放行（内网部署）
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DashboardConfig 看板配置
type DashboardConfig struct {
	SourceMode      string        `mapstructure:"source_mode"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LayoutFile      string        `mapstructure:"layout_file"`
	GeneratorSeed   int64         `mapstructure:"generator_seed"`
	TrendDays       int           `mapstructure:"trend_days"`
	// ReportDir 未配置 MinIO 时报表文件的本地落盘目录，空值使用系统临时目录
	ReportDir string `mapstructure:"report_dir"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DBName          string        `mapstructure:"dbname"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ClickHouseConfig ClickHouse 配置
type ClickHouseConfig struct {
	Addr            string        `mapstructure:"addr"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig 呼叫事件摄入配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// MinIOConfig 报表对象存储配置
type MinIOConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // memory | redis
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
	LiveTTL    time.Duration `mapstructure:"live_ttl"`
	KPITTL     time.Duration `mapstructure:"kpi_ttl"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	OTELEndpoint   string  `mapstructure:"otel_endpoint"`
	OTELProtocol   string  `mapstructure:"otel_protocol"` // grpc | http
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	Environment    string  `mapstructure:"environment"`
	EnableTrace    bool    `mapstructure:"enable_trace"`
	EnableMetrics  bool    `mapstructure:"enable_metrics"`
	LogLevel       string  `mapstructure:"log_level"`
	LogFormat      string  `mapstructure:"log_format"`
}

// ResilienceConfig 弹性配置
type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Timeout        TimeoutConfig        `mapstructure:"timeout"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Threshold   float64       `mapstructure:"threshold"`
	MinRequests uint32        `mapstructure:"min_requests"`
}

// TimeoutConfig 超时配置
type TimeoutConfig struct {
	Default          time.Duration `mapstructure:"default"`
	Query            time.Duration `mapstructure:"query"`
	ReportGeneration time.Duration `mapstructure:"report_generation"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiry    time.Duration `mapstructure:"jwt_expiry"`
	APIKeyHeader string        `mapstructure:"api_key_header"`
	// DisplayKeys 大屏免 JWT 的预置密钥，只存 bcrypt 哈希
	DisplayKeys []DisplayKeyConfig `mapstructure:"display_keys"`
}

// DisplayKeyConfig 大屏密钥配置项
type DisplayKeyConfig struct {
	TenantID string `mapstructure:"tenant_id"`
	KeyHash  string `mapstructure:"key_hash"`
}

// TenantConfig 租户配置
type TenantConfig struct {
	DefaultTenant string `mapstructure:"default_tenant"`
	DefaultLimit  int    `mapstructure:"default_limit"`
	MaxLimit      int    `mapstructure:"max_limit"`
}

// DiscoveryConfig 服务注册配置
type DiscoveryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ConsulAddr  string `mapstructure:"consul_addr"`
	ServiceName string `mapstructure:"service_name"`
	ServiceHost string `mapstructure:"service_host"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dashboard-service")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 自动从环境变量读取
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// 从环境变量覆盖敏感配置
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if password := os.Getenv("CLICKHOUSE_PASSWORD"); password != "" {
		config.ClickHouse.Password = password
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		config.MinIO.AccessKey = key
	}
	if key := os.Getenv("MINIO_SECRET_KEY"); key != "" {
		config.MinIO.SecretKey = key
	}
	if endpoint := os.Getenv("OTEL_ENDPOINT"); endpoint != "" {
		config.Observability.OTELEndpoint = endpoint
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDefaults 填充未配置项的缺省值
func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Dashboard.SourceMode == "" {
		c.Dashboard.SourceMode = SourceModeMock
	}
	if c.Dashboard.RefreshInterval == 0 {
		c.Dashboard.RefreshInterval = 30 * time.Second
	}
	if c.Dashboard.TrendDays == 0 {
		c.Dashboard.TrendDays = 7
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 30 * time.Second
	}
	if c.Cache.SummaryTTL == 0 {
		c.Cache.SummaryTTL = c.Cache.DefaultTTL
	}
	if c.Cache.LiveTTL == 0 {
		c.Cache.LiveTTL = 5 * time.Second
	}
	if c.Cache.KPITTL == 0 {
		c.Cache.KPITTL = c.Cache.DefaultTTL
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "voice.call.events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "dashboard-service"
	}
	if c.Auth.APIKeyHeader == "" {
		c.Auth.APIKeyHeader = "X-API-Key"
	}
	if c.Tenant.DefaultLimit == 0 {
		c.Tenant.DefaultLimit = 20
	}
	if c.Tenant.MaxLimit == 0 {
		c.Tenant.MaxLimit = 100
	}
	if c.MinIO.URLExpiry == 0 {
		c.MinIO.URLExpiry = time.Hour
	}
	if c.Observability.SampleRatio == 0 {
		c.Observability.SampleRatio = 0.1
	}
	if c.Observability.OTELProtocol == "" {
		c.Observability.OTELProtocol = "grpc"
	}
	if c.Resilience.Timeout.Default == 0 {
		c.Resilience.Timeout.Default = 10 * time.Second
	}
	if c.Resilience.Timeout.Query == 0 {
		c.Resilience.Timeout.Query = 5 * time.Second
	}
	if c.Resilience.Timeout.ReportGeneration == 0 {
		c.Resilience.Timeout.ReportGeneration = 2 * time.Minute
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Dashboard.SourceMode {
	case SourceModeMock, SourceModeLive:
	default:
		return fmt.Errorf("invalid dashboard.source_mode %q", c.Dashboard.SourceMode)
	}
	switch c.Observability.OTELProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("invalid observability.otel_protocol %q", c.Observability.OTELProtocol)
	}
	if c.Dashboard.RefreshInterval < time.Second {
		return fmt.Errorf("dashboard.refresh_interval %s below 1s", c.Dashboard.RefreshInterval)
	}
	if c.Dashboard.SourceMode == SourceModeLive {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr required in live mode")
		}
		if c.ClickHouse.Addr == "" {
			return fmt.Errorf("clickhouse.addr required in live mode")
		}
	}
	if c.Kafka.Enabled && c.Dashboard.SourceMode != SourceModeLive {
		return fmt.Errorf("kafka ingest requires dashboard.source_mode=%s", SourceModeLive)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret required when auth enabled")
	}
	for i, k := range c.Auth.DisplayKeys {
		if k.TenantID == "" || k.KeyHash == "" {
			return fmt.Errorf("auth.display_keys[%d] requires tenant_id and key_hash", i)
		}
	}
	return nil
}
