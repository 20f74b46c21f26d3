package middleware

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/menubot/api/responses"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
)

const (
	operatorIDHeader     = "X-Operator-Id"
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
)

// OperatorDirectory answers whether a Telegram user id is an operator.
type OperatorDirectory interface {
	IsOperator(id int64) bool
}

// RequireOperator admits requests whose X-Operator-Id is on the allow-list.
// A non-empty token additionally requires a matching bearer token.
func RequireOperator(dir OperatorDirectory, token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token != "" && !secretMatches(bearerToken(r), token) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid operator token"))
				return
			}

			raw := strings.TrimSpace(r.Header.Get(operatorIDHeader))
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || dir == nil || !dir.IsOperator(id) {
				if logg != nil {
					ctx = logg.WithField(ctx, "operator_header", raw)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "operator access required"))
				return
			}

			ctx = WithOperatorID(ctx, id)
			if logg != nil {
				ctx = logg.WithField(ctx, "operator_id", id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TelegramSecret rejects webhook calls that do not carry the configured secret.
func TelegramSecret(secret string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" || !secretMatches(r.Header.Get(telegramSecretHeader), secret) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid webhook secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
