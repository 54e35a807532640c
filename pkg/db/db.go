package db

import (
	"fmt"
	"sync"
	"time"

	"coco/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

type Config struct {
	Driver    string // mysql | postgres
	User      string
	Password  string
	Host      string
	Port      string
	DBName    string
	Charset   string // optional
	Loc       string // optional
	ParseTime bool   // optional
}

func (cfg Config) DSN() string {
	if cfg.Driver == "postgres" {
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, port)
	}

	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	loc := cfg.Loc
	if loc == "" {
		loc = "UTC"
	}
	host := cfg.Host
	if cfg.Port != "" {
		host = fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=%s",
		cfg.User, cfg.Password, host, cfg.DBName, charset, cfg.ParseTime, loc,
	)
}

// gorm 日志写入 zap
type gormZapWriter struct{}

func (gormZapWriter) Printf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Init 打开数据库连接，进程内只初始化一次
func Init(cfg Config) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		var dialector gorm.Dialector
		switch cfg.Driver {
		case "postgres":
			dialector = postgres.Open(cfg.DSN())
		default:
			dialector = mysql.Open(cfg.DSN())
		}

		gl := gormlogger.New(gormZapWriter{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		})

		DB, err = gorm.Open(dialector, &gorm.Config{Logger: gl, TranslateError: true})
		if err != nil {
			err = fmt.Errorf("failed to connect to database: %w", err)
			return
		}

		// Set connection pool
		sqlDB, e := DB.DB()
		if e != nil {
			err = e
			return
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	})
	return DB, err
}

// Close 关闭主库链接
func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
