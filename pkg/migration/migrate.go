// Package migration はSQLiteデータベースのスキーマを版管理する。
// fs.FS上の "<version>_<name>.up.sql" を版の昇順に1版1トランザクションで適用し、
// schema_migrations に記録した版は再実行しない。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// upSuffix は適用対象のファイルの拡張子。
const upSuffix = ".up.sql"

// Migration は1つのスキーマ変更。
type Migration struct {
	// Version は適用順を決める版番号。
	Version int
	// Name はファイル名の版番号以降の部分。
	Name string
	// SQL は実行するSQL文。
	SQL string
}

// Load はdir直下のマイグレーションを読み込み、版の昇順に並べて返す。
// 命名規則に合わないファイルは無視する。同じ版が複数ある場合はエラーになる。
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ディレクトリの読み込みに失敗: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("版 %06d が重複しています: %s, %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", entry.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// parseFileName は "000001_create_kv_store.up.sql" を版番号と名前に分解する。
func parseFileName(file string) (int, string, bool) {
	base, ok := strings.CutSuffix(file, upSuffix)
	if !ok {
		return 0, "", false
	}
	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", false
	}
	return version, name, true
}

// Run はdirのマイグレーションのうち未適用のものを版の昇順に適用する。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger zerolog.Logger) error {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションの読み込みに失敗: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("schema_migrations の作成に失敗: %w", err)
	}

	done, err := Applied(ctx, db)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if slices.Contains(done, m.Version) {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("%06d_%s の適用に失敗: %w", m.Version, m.Name, err)
		}
		logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("マイグレーションを適用しました")
		count++
	}

	logger.Debug().Int("applied", count).Int("total", len(migrations)).Msg("スキーマは最新です")
	return nil
}

// Applied は適用済みの版番号を昇順に返す。
func Applied(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("適用済みの版の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("適用済みの版の読み取りに失敗: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// apply はSQLの実行と版の記録を同じトランザクションで行う。
func apply(ctx context.Context, db *sql.DB, m Migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
