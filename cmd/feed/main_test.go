package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/alertfeed/pkg/middleware"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"alertfeed", "--log-level", "error"}, args...))
	return strings.TrimSpace(out.String()), err
}

func parseToken(t *testing.T, token, secret string) *middleware.JWTClaims {
	t.Helper()
	claims := &middleware.JWTClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	return claims
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alertfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestTokenCommand(t *testing.T) {
	t.Run("指定したシークレットで署名されたトークンを出力すること", func(t *testing.T) {
		out, err := runApp(t, "--jwt-secret", "cli-secret", "token", "--user", "user-1", "--email", "a@example.com")
		require.NoError(t, err)

		claims := parseToken(t, out, "cli-secret")
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, middleware.Issuer, claims.Issuer)
	})

	t.Run("設定ファイルのシークレットが使われること", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: file-secret\n")

		out, err := runApp(t, "--config", path, "token", "--user", "user-2")
		require.NoError(t, err)

		claims := parseToken(t, out, "file-secret")
		assert.Equal(t, "user-2", claims.UserID)
	})

	t.Run("明示したフラグが設定ファイルより優先されること", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secret: file-secret\n")

		out, err := runApp(t, "--config", path, "--jwt-secret", "flag-secret", "token", "--user", "user-3")
		require.NoError(t, err)

		claims := parseToken(t, out, "flag-secret")
		assert.Equal(t, "user-3", claims.UserID)
	})

	t.Run("ユーザーIDが無い場合はエラーになること", func(t *testing.T) {
		_, err := runApp(t, "--jwt-secret", "cli-secret", "token")
		assert.Error(t, err)
	})
}

func TestConfigValidation(t *testing.T) {
	t.Run("不正なポートは起動前にエラーになること", func(t *testing.T) {
		_, err := runApp(t, "--port", "0", "token", "--user", "user-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port")
	})

	t.Run("不正な通知サービスURLはエラーになること", func(t *testing.T) {
		path := writeConfig(t, "backend:\n  url: ftp://example.com\n")

		_, err := runApp(t, "--config", path, "token", "--user", "user-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backend.url")
	})

	t.Run("壊れた設定ファイルはエラーになること", func(t *testing.T) {
		path := writeConfig(t, "server: [\n")

		_, err := runApp(t, "--config", path, "token", "--user", "user-1")
		assert.Error(t, err)
	})

	t.Run("未知のコマンドはエラーになること", func(t *testing.T) {
		_, err := runApp(t, "bogus")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bogus")
	})
}
