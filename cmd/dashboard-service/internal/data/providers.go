package data

import (
	"database/sql"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"voicedash/cmd/dashboard-service/internal/biz"
	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
	"voicedash/pkg/cache"
)

// Data 数据层资源句柄
// 按配置打开后端连接，未配置的字段保持 nil，上层据此降级到内存实现。
type Data struct {
	DB         *gorm.DB
	SQLDB      *sql.DB
	Redis      *redis.Client
	ClickHouse *ClickHouseClient
}

// NewData 创建数据层资源
// PostgreSQL 在 database.host 配置时打开，Redis 与 ClickHouse 仅 live 模式打开。
func NewData(cfg *conf.Config, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(log.With(logger, "module", "data"))
	d := &Data{}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.SQLDB != nil {
			d.SQLDB.Close()
		}
		if d.DB != nil {
			if sqlDB, err := d.DB.DB(); err == nil {
				sqlDB.Close()
			}
		}
		if d.Redis != nil {
			d.Redis.Close()
		}
		if d.ClickHouse != nil {
			d.ClickHouse.Close()
		}
	}

	if cfg.Database.Host != "" {
		db, err := NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		d.DB = db

		sqlDB, err := NewSQLDB(&cfg.Database)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.SQLDB = sqlDB
	}

	if cfg.Dashboard.SourceMode == conf.SourceModeLive {
		client, err := NewRedisClient(&cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.Redis = client

		ch, err := NewClickHouseClient(&cfg.ClickHouse)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.ClickHouse = ch
	}

	return d, cleanup, nil
}

// NewCapacityStore 创建容量档案仓储
// 配置了 PostgreSQL 走 SQL 实现，否则退化为进程内存储。
func NewCapacityStore(d *Data, logger log.Logger) (domain.CapacityRepository, error) {
	if d.SQLDB != nil {
		return NewCapacityRepository(d.SQLDB, logger)
	}
	return NewMemoryCapacityRepository(), nil
}

// NewReportStore 创建报表仓储
func NewReportStore(d *Data) domain.ReportRepository {
	if d.DB != nil {
		return NewReportRepository(d.DB)
	}
	return NewMemoryReportRepository()
}

// NewSources 创建实时与历史指标来源
// mock 模式直接使用合成数据；live 模式包一层熔断，后端故障时回退合成数据。
func NewSources(
	cfg *conf.Config,
	d *Data,
	caps domain.CapacityRepository,
	logger log.Logger,
) (domain.LiveSource, domain.HistorySource) {
	gen := NewGenerator(cfg.Dashboard.GeneratorSeed)
	if cfg.Dashboard.SourceMode != conf.SourceModeLive {
		return gen, gen
	}

	live := NewResilientLiveSource(
		NewRedisLiveStore(d.Redis, caps),
		gen,
		cfg.Resilience.CircuitBreaker,
		logger,
	)
	history := NewResilientHistorySource(
		NewClickHouseHistory(d.ClickHouse),
		gen,
		cfg.Resilience.CircuitBreaker,
		logger,
	)
	return live, history
}

// NewSnapshotCache 创建看板快照缓存
func NewSnapshotCache(cfg *conf.Config) (biz.SnapshotCache, func()) {
	if cfg.Cache.Backend == "redis" {
		c := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.Options{
			KeyPrefix:  "voicedash",
			DefaultTTL: cfg.Cache.DefaultTTL,
		})
		return c, func() { c.Close() }
	}
	return NewMemoryCache(), func() {}
}

// NewReportUploader 创建报表文件存储
// 配置了 MinIO 端点走对象存储，否则落盘到本地目录。
func NewReportUploader(cfg *conf.Config) (biz.ReportUploader, error) {
	if cfg.MinIO.Endpoint != "" {
		return NewReportFileStore(&cfg.MinIO)
	}
	return NewLocalReportStore(cfg.Dashboard.ReportDir)
}
