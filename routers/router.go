package routers

import (
	"slots-server/internal/config"
	"slots-server/internal/controller/api"
	"slots-server/internal/metrics"
	"slots-server/internal/middleware"
	"slots-server/internal/ws"

	beego "github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register 注册HTTP路由与全局过滤器
// 必须在 config.Set 与 api.Init 之后调用（过滤器注册依赖配置开关）
func Register(wsHandler *ws.Handler) {
	cfg := config.Get()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// Prometheus 指标（如果启用）
	if cfg != nil && cfg.Observability.EnableProm {
		path := cfg.Observability.PromPath
		if path == "" {
			path = "/metrics"
		}
		beego.Handler(path, promhttp.Handler())
	}

	// ========== 业务 API（需要认证） ==========

	// 转轮结算接口：用户认证 + 限流
	beego.InsertFilter("/api/spin", beego.BeforeExec, middleware.UserAuthFilter)
	if cfg != nil && cfg.RateLimit.Enabled {
		beego.InsertFilter("/api/spin", beego.BeforeExec, middleware.RateLimitFilter)
	}
	beego.Router("/api/spin", &api.SpinController{}, "post:Spin")

	// 用户查询接口：用户认证（用户只能查询自己的数据）
	beego.InsertFilter("/api/account/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/account/balance", &api.AccountController{}, "get:Balance")
	beego.Router("/api/account/rounds", &api.AccountController{}, "get:Rounds")
	beego.Router("/api/account/logout", &api.AccountController{}, "post:Logout")

	// 回合查询接口：先查 Redis 结果缓存，未命中回源 DB
	beego.InsertFilter("/api/round/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/round/:round_id", &api.RoundController{}, "get:GetRound")

	// ========== 管理 API（需要管理员认证） ==========

	// 开户接口：管理员认证
	if cfg != nil && cfg.Auth.Admin.Enabled {
		beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	}
	beego.Router("/api/admin/account", &api.AccountController{}, "post:CreateAccount")

	// WebSocket 实时通道（自行处理认证与升级）
	beego.Handler("/ws", wsHandler)
}
