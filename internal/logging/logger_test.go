package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("不正なレベルでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		_, closer, err := New("verbose", "")
		defer closer()
		require.Error(t, err)
	})

	t.Run("ファイル出力先が作成されること", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "logs", "feed.log")
		l, closer, err := New("warn", path)
		require.NoError(t, err)

		assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
		l.Warn().Msg("hello")
		closer()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
	})
}
