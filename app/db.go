package app

import (
	"context"

	"github.com/fiffu/betterave/config"
	"github.com/fiffu/betterave/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *gorm.DB {
	gormCfg := &gorm.Config{}
	if !cfg.IsDevelopment() {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), gormCfg)
	if err != nil {
		log.Sugar().Panicw("failed to connect database", "path", cfg.DatabasePath, "err", err)
	}
	log.Sugar().Infow("Database started", "path", cfg.DatabasePath)

	// SQLite only allows one writer at a time.
	sqlDB, err := db.DB()
	if err != nil {
		log.Sugar().Panicw("failed to get database handle", "err", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Info("Starting migrations")
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Sugar().Panicw("migrations failed", "err", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sqlDB.Close()
		},
	})
	return db
}
