package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
)

// RequestLogger returns fasthttp middleware that logs method, path, status,
// duration and feeds the serve-path request metrics.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		elapsed := time.Since(start)
		status := ctx.Response.StatusCode()
		log.Printf("%s %s -> %d (%s) ip=%s", ctx.Method(), ctx.Path(), status, elapsed, ctx.RemoteAddr())

		if requestsServedTotal != nil {
			route, method := string(ctx.Path()), string(ctx.Method())
			requestsServedTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			requestDurationBuckets.WithLabelValues(route, method).Observe(elapsed.Seconds())
		}
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}
