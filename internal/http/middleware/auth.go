package middleware

import (
	"bytes"
	"crypto/subtle"
	"strings"

	"github.com/valyala/fasthttp"
)

// BearerAuth validates the Authorization header against the configured
// ingest key. An empty configured key disables the protected endpoint
// entirely.
func BearerAuth(key string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if key == "" {
				ctx.SetStatusCode(fasthttp.StatusForbidden)
				ctx.SetBodyString("ingest is disabled (no ingest key configured)")
				return
			}

			auth := ctx.Request.Header.Peek("Authorization")
			if len(auth) == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("missing Authorization header")
				return
			}

			const prefix = "Bearer "
			if !bytes.HasPrefix(auth, []byte(prefix)) {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid Authorization header")
				return
			}

			token := strings.TrimSpace(string(auth[len(prefix):]))
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid ingest key")
				return
			}

			next(ctx)
		}
	}
}
