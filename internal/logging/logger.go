// Package logging はzerologベースのロガー生成を提供する。
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New は指定レベルでJSONを出力するロガーを生成する。
// fileが空の場合は標準出力に書き込む。戻り値のcloserでファイルを閉じる。
//
// levelには debug, info, warn, error, fatal のいずれかを指定する。
func New(level, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("ログレベルが不正: %w", err)
	}

	var writer io.Writer = os.Stdout
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
		}

		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("ログファイルのオープンに失敗: %w", err)
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// Component はコンポーネント識別子付きのロガーを生成する。
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
