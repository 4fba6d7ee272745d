// Package dbx はリポジトリ層で共有する小さなDB抽象を提供します。
// *sql.DB と *sql.Tx の両方が満たす Queryer インターフェースと、
// トランザクション内で関数を実行するヘルパーから成ります。
package dbx

import (
	"context"
	"database/sql"
)

// Queryer はリポジトリが使用する database/sql のサブセットです。
// *sql.DB と *sql.Tx の両方がこのインターフェースを満たします。
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx はトランザクションを開始して fn を実行し、
// 成功時はコミット、エラーまたはパニック時はロールバックします。
// パニックは再スローされます。
func RunInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx Queryer) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
