package middleware

import (
	"strings"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

// 网关透传的请求ID不能无限长，超长按新请求处理
const maxRequestIDLen = 64

// RequestIDFilter 为每个请求注入并返回一个 X-Request-Id，用于链路追踪的最小闭环
// 入站已携带 X-Request-Id 或 X-Trace-ID 时沿用，跨服务调用保持同一条链路
func RequestIDFilter(ctx *context.Context) {
	id := strings.TrimSpace(ctx.Input.Header("X-Request-Id"))
	if id == "" {
		id = strings.TrimSpace(ctx.Input.Header("X-Trace-ID"))
	}
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Output.Header("X-Request-Id", id)
}
