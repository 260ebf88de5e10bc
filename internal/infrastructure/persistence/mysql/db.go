package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. driver=mysql用于部署环境,driver=sqlite用于本地运行和测试(同一套模型和仓储)
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. auto_migrate开启时自动迁移表结构
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath)
	default:
		dialector = mysql.Open(cfg.Database.DSN())
	}

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true, // 唯一索引冲突统一转换为gorm.ErrDuplicatedKey
		NowFunc:        time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// SQLite只允许一个写连接;内存库每个连接都是独立的库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	zap.L().Info("database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

// NewMemoryDB 创建已迁移的SQLite内存库(测试、CLI试运行)
func NewMemoryDB() (*gorm.DB, error) {
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.SQLitePath = ":memory:"
	cfg.Database.AutoMigrate = true
	return NewDB(cfg)
}

// AutoMigrate 自动迁移表结构
// 注意：生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
func AutoMigrate(db *gorm.DB) error {
	// 显式声明关联表,book_genres使用BookGenreModel的列定义
	if err := db.SetupJoinTable(&BookModel{}, "Genres", &BookGenreModel{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&GenreModel{},
		&BookModel{},
		&BookGenreModel{},
		&ImportJobModel{},
	)
}

// BookModel GORM图书模型
// 设计说明:
// 1. ID为应用生成的UUID
// 2. TitleKey/AuthorKey保存规范化后的书名和作者,查重只走(owner_id,title_key,author_key)索引
// 3. 类型通过book_genres关联表多对多
type BookModel struct {
	ID            string       `gorm:"primaryKey;size:36;comment:图书ID(UUID)"`
	OwnerID       uint         `gorm:"index:idx_owner_key,priority:1;not null;comment:所有者ID"`
	Title         string       `gorm:"size:200;not null;comment:书名"`
	TitleKey      string       `gorm:"index:idx_owner_key,priority:2;size:200;not null;comment:规范化书名"`
	Author        string       `gorm:"size:100;not null;comment:作者"`
	AuthorKey     string       `gorm:"index:idx_owner_key,priority:3;size:100;not null;comment:规范化作者"`
	PublishedDate string       `gorm:"size:50;comment:出版日期(原始文本)"`
	Rating        int          `gorm:"not null;comment:评分1-5"`
	Edition       string       `gorm:"size:50;comment:版本"`
	ISBN          string       `gorm:"size:20;comment:ISBN"`
	ExternalID    string       `gorm:"size:100;comment:外部元数据ID"`
	CoverURL      string       `gorm:"size:500;comment:封面图片URL"`
	Description   string       `gorm:"type:text;comment:图书描述"`
	PageCount     int          `gorm:"default:0;comment:页数"`
	Genres        []GenreModel `gorm:"many2many:book_genres;joinForeignKey:BookID;joinReferences:GenreID"`
	CreatedAt     time.Time    `gorm:"index;comment:创建时间"`
	UpdatedAt     time.Time    `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// GenreModel GORM类型模型
// NameKey唯一,保证"Fantasy"和"fantasy"是同一个类型
type GenreModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:50;not null;comment:类型名称(首次出现的写法)"`
	NameKey   string    `gorm:"uniqueIndex;size:50;not null;comment:规范化名称"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

// TableName 指定表名
func (GenreModel) TableName() string {
	return "genres"
}

// BookGenreModel 图书-类型关联
type BookGenreModel struct {
	BookID  string `gorm:"primaryKey;size:36"`
	GenreID uint   `gorm:"primaryKey;index"`
}

// TableName 指定表名
func (BookGenreModel) TableName() string {
	return "book_genres"
}

// ImportJobModel GORM导入任务模型
// ErrorSummary保存JSON数组
type ImportJobModel struct {
	ID            string     `gorm:"primaryKey;size:36;comment:任务ID(UUID)"`
	OwnerID       uint       `gorm:"index;not null;comment:所有者ID"`
	Filename      string     `gorm:"size:255;comment:上传文件名"`
	Status        string     `gorm:"index;size:32;not null;comment:状态"`
	TotalRows     int        `gorm:"not null;default:0"`
	ValidRows     int        `gorm:"not null;default:0"`
	ErrorRows     int        `gorm:"not null;default:0"`
	ProcessedRows int        `gorm:"not null;default:0"`
	ErrorSummary  string     `gorm:"type:text;comment:错误汇总(JSON)"`
	CreatedAt     time.Time  `gorm:"comment:创建时间"`
	UpdatedAt     time.Time  `gorm:"comment:更新时间"`
	CompletedAt   *time.Time `gorm:"comment:结束时间"`
}

// TableName 指定表名
func (ImportJobModel) TableName() string {
	return "import_jobs"
}
