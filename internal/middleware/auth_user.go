package middleware

import (
	"strings"
	"time"

	"slots-server/common/logger"
	"slots-server/internal/auth"
	"slots-server/internal/common/helper"
	"slots-server/internal/common/response"
	"slots-server/internal/config"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// UserAuthFilter 用户认证过滤器（JWT Token）
// 验证 JWT Token 并注入账户信息；演示模式下允许请求头直接携带 X-Account-Id
func UserAuthFilter(ctx *beegocontext.Context) {
	traceID := helper.GetTraceID(ctx)
	cfg := config.Get()

	// 辅助函数：返回错误
	returnError := func(httpCode int, bizCode int, message string) {
		ctx.Output.SetStatus(httpCode)
		ctx.Output.JSON(response.APIResponse{
			Code:      bizCode,
			Message:   message,
			Data:      nil,
			TraceID:   traceID,
			Timestamp: time.Now().UnixMilli(),
		}, false, false)
	}

	// 演示模式：请求头直接携带账户（仅限本地/联调环境）
	if cfg != nil && cfg.Auth.DemoMode {
		if accountID := strings.TrimSpace(ctx.Input.Header("X-Account-Id")); accountID != "" {
			ctx.Input.SetData("account_id", accountID)
			return
		}
	}

	claims, err := auth.VerifyJWTToken(ctx)
	if err != nil {
		logger.Warn("user authentication failed",
			zap.String("trace_id", traceID),
			zap.Error(err))

		// 根据错误类型返回不同的错误码
		switch err {
		case auth.ErrMissingToken:
			returnError(401, response.CodeUnauthorized, "缺少认证Token")
		case auth.ErrInvalidTokenFormat:
			returnError(401, response.CodeInvalidToken, "Token格式无效")
		case auth.ErrInvalidToken:
			returnError(401, response.CodeInvalidToken, "Token无效")
		case auth.ErrTokenExpired:
			returnError(401, response.CodeTokenExpired, "Token已过期")
		case auth.ErrTokenRevoked:
			returnError(401, response.CodeTokenRevoked, "Token已撤销")
		default:
			returnError(401, response.CodeUnauthorized, "认证失败")
		}
		return
	}

	// 将账户信息存入 context
	ctx.Input.SetData("account_id", claims.AccountID)
	ctx.Input.SetData("display_name", claims.DisplayName)
	ctx.Input.SetData("jwt_claims", claims)

	logger.Debug("user authentication successful",
		zap.String("trace_id", traceID),
		zap.String("account_id", claims.AccountID))
}
