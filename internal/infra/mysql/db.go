package mysql

import (
	"github.com/jmoiron/sqlx"
)

// 全局 *sqlx.DB 句柄（由 UseDB 注入）
var db *sqlx.DB

// UseDB 注入外部初始化好的 *sqlx.DB（例如 common.InitDB 返回的句柄）
func UseDB(d *sqlx.DB) {
	if d == nil {
		return
	}
	db = d
}

// SQLX 返回全局 *sqlx.DB 句柄
func SQLX() *sqlx.DB { return db }
