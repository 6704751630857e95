package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	_ "github.com/lib/pq"

	"voicedash/cmd/dashboard-service/internal/conf"
	"voicedash/cmd/dashboard-service/internal/domain"
)

// NewSQLDB 创建 database/sql 连接（容量档案走原生 SQL）
func NewSQLDB(config *conf.DatabaseConfig) (*sql.DB, error) {
	sslmode := config.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// CapacityRepositoryImpl PostgreSQL 实现
type CapacityRepositoryImpl struct {
	db  *sql.DB
	log *log.Helper
}

// NewCapacityRepository 创建 CapacityRepository 实例
func NewCapacityRepository(db *sql.DB, logger log.Logger) (*CapacityRepositoryImpl, error) {
	repo := &CapacityRepositoryImpl{
		db:  db,
		log: log.NewHelper(logger),
	}
	if err := repo.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// ensureSchema 建表
func (r *CapacityRepositoryImpl) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS capacity_profiles (
			tenant_id                TEXT PRIMARY KEY,
			max_concurrent_calls     INTEGER NOT NULL,
			cost_per_contained_call  DOUBLE PRECISION NOT NULL,
			currency                 TEXT NOT NULL DEFAULT 'INR',
			queue_alert_threshold    INTEGER NOT NULL DEFAULT 20,
			updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure capacity_profiles: %w", err)
	}
	return nil
}

// GetProfile 获取租户容量档案
func (r *CapacityRepositoryImpl) GetProfile(ctx context.Context, tenantID string) (*domain.CapacityProfile, error) {
	query := `
		SELECT tenant_id, max_concurrent_calls, cost_per_contained_call,
		       currency, queue_alert_threshold, updated_at
		FROM capacity_profiles
		WHERE tenant_id = $1
	`

	var p domain.CapacityProfile
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&p.TenantID,
		&p.MaxConcurrentCalls,
		&p.CostPerContainedCall,
		&p.Currency,
		&p.QueueAlertThreshold,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCapacityProfileNotFound
		}
		return nil, fmt.Errorf("failed to query capacity profile: %w", err)
	}

	return &p, nil
}

// UpsertProfile 写入或更新容量档案
func (r *CapacityRepositoryImpl) UpsertProfile(ctx context.Context, profile *domain.CapacityProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO capacity_profiles (
			tenant_id, max_concurrent_calls, cost_per_contained_call,
			currency, queue_alert_threshold, updated_at
		) VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			max_concurrent_calls    = EXCLUDED.max_concurrent_calls,
			cost_per_contained_call = EXCLUDED.cost_per_contained_call,
			currency                = EXCLUDED.currency,
			queue_alert_threshold   = EXCLUDED.queue_alert_threshold,
			updated_at              = now()
	`

	if _, err := r.db.ExecContext(ctx, query,
		profile.TenantID,
		profile.MaxConcurrentCalls,
		profile.CostPerContainedCall,
		profile.Currency,
		profile.QueueAlertThreshold,
	); err != nil {
		return fmt.Errorf("failed to upsert capacity profile: %w", err)
	}

	r.log.Infof("capacity profile updated: tenant=%s max_concurrent=%d",
		profile.TenantID, profile.MaxConcurrentCalls)
	return nil
}
