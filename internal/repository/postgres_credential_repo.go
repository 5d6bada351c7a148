package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/sportcal/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用した資格情報リポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

// Get は指定トークンの資格情報を取得する。見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) Get(ctx context.Context, token string) (*model.Credential, error) {
	cred := &model.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT token, credential, updated_at
		 FROM credentials
		 WHERE token = $1`,
		token,
	).Scan(&cred.Token, &cred.Credential, &cred.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	return cred, nil
}

// Put は資格情報をUPSERTする。
// 同一トークンへの並行書き込みは後勝ちで解決される（全置換のため競合は無害）。
func (r *PostgresCredentialRepo) Put(ctx context.Context, token, credential string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (token, credential, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (token) DO UPDATE
		 SET credential = EXCLUDED.credential, updated_at = now()`,
		token, credential,
	)
	if err != nil {
		return fmt.Errorf("failed to put credential: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
