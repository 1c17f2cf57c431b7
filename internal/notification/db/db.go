// Package notificationdb 는 알림 저장소 SQLite 쿼리를 모아 둔다.
package notificationdb

import (
	"context"
	"database/sql"
)

// DBTX 는 *sql.DB 와 *sql.Tx 의 공통 인터페이스.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// New 는 DBTX 위에서 쿼리를 실행하는 Queries 를 반환한다.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries 는 notifications / users 테이블 쿼리를 묶는다.
type Queries struct {
	db DBTX
}

// WithTx 는 트랜잭션에 묶인 Queries 를 반환한다.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
