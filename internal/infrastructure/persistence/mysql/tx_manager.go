package mysql

import (
	"context"

	"gorm.io/gorm"
)

// txKey Context中事务DB的key
type txKey struct{}

// TxManager 事务管理器
// 教学要点:
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 支持嵌套事务(GORM自动使用Savepoint)
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// fn返回error时ROLLBACK,返回nil时COMMIT;ctx在提交前被取消也会ROLLBACK
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    genres, err := bookService.EnsureGenres(ctx, names)
//	    if err != nil {
//	        return err
//	    }
//	    return bookRepo.CreateBatch(ctx, books, genres) // 失败时类型一起回滚
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbFrom(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		if err := fn(txCtx); err != nil {
			return err
		}
		return ctx.Err()
	})
}
