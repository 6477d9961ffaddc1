package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/playperu/whereami/internal/whereami"
)

var errNoSession = errors.New("no valid session")

func bearerToken(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

func withAccount(ctx context.Context, acct whereami.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount, acct)
}

// accountFrom returns the account authenticated by sessionMiddleware, if any.
func accountFrom(ctx context.Context) (whereami.Account, bool) {
	acct, ok := ctx.Value(ctxKeyAccount).(whereami.Account)
	return acct, ok
}
