package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/useradmin/internal/common"
	"github.com/yourusername/useradmin/internal/dbx"
)

const pgUniqueViolation = "23505"

// joinedColumns は一覧・詳細で共通のSELECT句です。
// プロフィール未作成のアカウントでも空文字列で受けられるよう COALESCE します。
const joinedColumns = `
	a.id, a.username, a.email, a.display_name, a.role, a.created_at, a.updated_at,
	COALESCE(p.phone, ''), COALESCE(p.address, ''), COALESCE(p.bio, ''), COALESCE(p.avatar_ref, '')`

// PostgresRepository は Repository の PostgreSQL 実装です。
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository は PostgresRepository を作成します。
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]AccountWithProfile, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM accounts a
		LEFT JOIN profiles p ON p.account_id = a.id
		ORDER BY a.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanJoinedRows(rows)
}

func (r *PostgresRepository) Search(ctx context.Context, term string) ([]AccountWithProfile, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM accounts a
		LEFT JOIN profiles p ON p.account_id = a.id
		WHERE a.username ILIKE $1 OR a.email ILIKE $1 OR a.display_name ILIKE $1
		ORDER BY a.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanJoinedRows(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*AccountWithProfile, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM accounts a
		LEFT JOIN profiles p ON p.account_id = a.id
		WHERE a.id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var u AccountWithProfile
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		&u.Profile.Phone, &u.Profile.Address, &u.Profile.Bio, &u.Profile.AvatarRef,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, identifier string) (*Account, error) {
	query := `
		SELECT id, username, email, password_hash, display_name, role, created_at, updated_at
		FROM accounts
		WHERE username = $1 OR email = $1`

	account := &Account{}
	err := r.db.QueryRowContext(ctx, query, identifier).Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.DisplayName, &account.Role, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *Account) (*Account, error) {
	query := `
		INSERT INTO accounts (username, email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, account.DisplayName, account.Role,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = $1`, RoleAdmin,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) UpdateWithProfile(ctx context.Context, id int64, displayName, email string, profile Profile) error {
	return dbx.RunInTx(ctx, r.db, func(ctx context.Context, tx dbx.Queryer) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE accounts
			SET display_name = $1, email = $2, updated_at = now()
			WHERE id = $3`,
			displayName, email, id,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return common.ErrConflict
			}
			return fmt.Errorf("db error: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if affected == 0 {
			return common.ErrNotFound
		}

		return upsertProfile(ctx, tx, id, profile)
	})
}

func (r *PostgresRepository) UpsertProfile(ctx context.Context, accountID int64, profile Profile) error {
	return upsertProfile(ctx, r.db, accountID, profile)
}

func (r *PostgresRepository) SetAvatar(ctx context.Context, accountID int64, avatarRef string) (string, error) {
	var previous string
	err := dbx.RunInTx(ctx, r.db, func(ctx context.Context, tx dbx.Queryer) error {
		// 置き換え前の参照を取得してから upsert する
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(avatar_ref, '') FROM profiles WHERE account_id = $1 FOR UPDATE`,
			accountID,
		).Scan(&previous)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (account_id, avatar_ref)
			VALUES ($1, $2)
			ON CONFLICT (account_id) DO UPDATE SET avatar_ref = EXCLUDED.avatar_ref`,
			accountID, avatarRef,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*Account, error) {
	deleted := &Account{}

	err := dbx.RunInTx(ctx, r.db, func(ctx context.Context, tx dbx.Queryer) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, username, email, display_name, role
			FROM accounts
			WHERE id = $1
			FOR UPDATE`,
			id,
		).Scan(&deleted.ID, &deleted.Username, &deleted.Email, &deleted.DisplayName, &deleted.Role)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if deleted.Role == RoleAdmin {
			// admin 行をロックしてから数えることで、並行する削除同士が
			// 同じカウントを見て両方通過する競合を閉じる
			rows, err := tx.QueryContext(ctx,
				`SELECT id FROM accounts WHERE role = $1 FOR UPDATE`, RoleAdmin,
			)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			adminCount := 0
			for rows.Next() {
				var adminID int64
				if err := rows.Scan(&adminID); err != nil {
					rows.Close()
					return fmt.Errorf("db error: %w", err)
				}
				adminCount++
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return fmt.Errorf("db error: %w", err)
			}
			rows.Close()

			if adminCount <= 1 {
				return ErrLastAdmin
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE account_id = $1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func upsertProfile(ctx context.Context, q dbx.Queryer, accountID int64, profile Profile) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO profiles (account_id, phone, address, bio)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id) DO UPDATE
		SET phone = EXCLUDED.phone, address = EXCLUDED.address, bio = EXCLUDED.bio`,
		accountID, profile.Phone, profile.Address, profile.Bio,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanJoinedRows(rows *sql.Rows) ([]AccountWithProfile, error) {
	var result []AccountWithProfile
	for rows.Next() {
		var u AccountWithProfile
		err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt, &u.UpdatedAt,
			&u.Profile.Phone, &u.Profile.Address, &u.Profile.Bio, &u.Profile.AvatarRef,
		)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
