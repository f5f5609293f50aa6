package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"image-review/internal/config"
	"image-review/internal/model"
	"image-review/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// zapWriter 把 gorm 的日志转到 zap。
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// newGormLogger 只输出慢查询和错误。记录不存在是正常的查询分支，不输出。
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Init 根据 database.driver 打开 MySQL 或 SQLite 连接并完成表结构迁移，结果写入全局 DB。
func Init(cfg config.DatabaseConfig) {
	db, err := Open(cfg)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatal("failed to migrate database", err)
	}
	DB = db
	log.Infof("%s database connected successfully", DB.Dialector.Name())
}

// Open 按配置选择驱动打开连接，不做迁移。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.SQLite.Path)
	case "mysql", "":
		return OpenMySQL(cfg.MySQL.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenMySQL 打开 MySQL 连接并配置连接池。
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapWriter{}),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)           // 空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 连接可复用的最大时间
	return db, nil
}

// OpenSQLite 打开本地 SQLite 数据库，用于开发环境和导入工具。
// SQLite 同一时刻只允许一个写事务，连接池限制为单连接。
func OpenSQLite(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(zapWriter{}),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate 创建或补齐业务表。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.ImageTitle{}, &model.Image{}, &model.CheckTask{})
}

// Close 关闭底层连接池。
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
