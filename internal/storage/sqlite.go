package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nao1215/alertfeed/internal/logging"
	"github.com/nao1215/alertfeed/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath はプロセス内だけで使うSQLiteデータベースを表すパス。
const MemoryPath = ":memory:"

// SQLiteKV はSQLiteを使ったKVの実装。
type SQLiteKV struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

var _ KV = (*SQLiteKV)(nil)

// OpenSQLite はpathのSQLiteデータベースを開き、スキーマを適用する。
// pathがMemoryPathの場合はインメモリデータベースを使う。
func OpenSQLite(ctx context.Context, path string) (*SQLiteKV, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == MemoryPath {
		// インメモリDBは接続ごとに別のデータベースになる
		db.SetMaxOpenConns(1)
	}

	if err := migration.Run(ctx, db, migrations, "migrations", logging.Component("migration")); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	return &SQLiteKV{db: db}, nil
}

// Get はkeyの値をdestにデシリアライズする。
func (s *SQLiteKV) Get(ctx context.Context, key string, dest any) error {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("kv get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("kv get %q: %w", key, err)
	}

	if err := json.Unmarshal(value, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

// Set はvalueをシリアライズしてkeyに保存する。
func (s *SQLiteKV) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}

	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, data, now, now)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete はkeyを削除する。
func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// Has はkeyが存在するかを返す。
func (s *SQLiteKV) Has(ctx context.Context, key string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store WHERE key = ?`, key).Scan(&count); err != nil {
		return false, fmt.Errorf("kv has %q: %w", key, err)
	}
	return count > 0, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
