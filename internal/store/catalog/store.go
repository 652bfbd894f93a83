// Package catalog 用 gorm + SQLite 缓存各数据源的交易对列表。
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chartlab/internal/market"
)

type Store struct {
	db *gorm.DB
}

// Open 打开（或创建）目录库文件。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("catalog path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return FromDB(db)
}

// FromDB 复用已有连接并迁移表结构。
func FromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&InstrumentModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Replace 用最新列表覆盖某个数据源的目录：存在的更新，缺失的删除。
func (s *Store) Replace(ctx context.Context, source string, list []market.Instrument, at time.Time) (int, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return 0, fmt.Errorf("source cannot be empty")
	}
	stamp := at.Unix()
	rows := make([]InstrumentModel, 0, len(list))
	for _, in := range list {
		if strings.TrimSpace(in.Symbol) == "" {
			continue
		}
		in.Source = source
		rows = append(rows, fromInstrument(in, stamp))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source"}, {Name: "symbol"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "status", "meta", "synced_at"}),
			}).CreateInBatches(&rows, 200).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("source = ? AND synced_at < ?", source, stamp).Delete(&InstrumentModel{}).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Search 按代码或名称模糊查询，query 为空时返回全部；limit<=0 不限制。
func (s *Store) Search(ctx context.Context, source, query string, limit int) ([]market.Instrument, error) {
	tx := s.db.WithContext(ctx).Model(&InstrumentModel{}).
		Where("source = ?", strings.ToLower(strings.TrimSpace(source)))
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToUpper(q) + "%"
		tx = tx.Where("(UPPER(symbol) LIKE ? OR UPPER(name) LIKE ?)", like, like)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []InstrumentModel
	if err := tx.Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.Instrument, len(rows))
	for i, r := range rows {
		out[i] = r.toInstrument()
	}
	return out, nil
}

// LastSync 返回该数据源最近一次写入时间；没有记录时 ok=false。
func (s *Store) LastSync(ctx context.Context, source string) (time.Time, bool, error) {
	var stamp sql.NullInt64
	err := s.db.WithContext(ctx).Model(&InstrumentModel{}).
		Where("source = ?", strings.ToLower(strings.TrimSpace(source))).
		Select("MAX(synced_at)").Row().Scan(&stamp)
	if err != nil {
		return time.Time{}, false, err
	}
	if !stamp.Valid || stamp.Int64 == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(stamp.Int64, 0), true, nil
}
