package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"slots-server/common/helper"
	"slots-server/common/logger"
	"slots-server/internal/auth"
	reqhelper "slots-server/internal/common/helper"
	"slots-server/internal/common/response"
	"slots-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

type AccountController struct{ beego.Controller }

// CreateAccount 开户接口（管理端）：POST /api/admin/account
// 开户入金记入账本，账户不会在结算路径上自动创建
func (c *AccountController) CreateAccount() {
	traceID := reqhelper.GetTraceID(c.Ctx)

	ap, ok, msg := reqhelper.ParseAndValidateCreateAccount(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	err := acctSvc.Create(c.Ctx.Request.Context(), service.CreateAccountInput{
		AccountID:      ap.AccountID,
		DisplayName:    ap.DisplayName,
		OpeningBalance: ap.OpeningBalance,
		Currency:       ap.Currency,
		TraceID:        traceID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountExists):
			response.Conflict(&c.Controller, response.CodeAccountExists, traceID)
		case errors.Is(err, service.ErrInvalidWager):
			response.BadRequest(&c.Controller, err.Error(), traceID)
		default:
			response.Error(&c.Controller, 500, response.CodePersistenceFailure, traceID)
		}
		return
	}

	// 开户即下发访问令牌，玩家端可直接建连
	accessToken, err := auth.GenerateAccessToken(ap.AccountID, ap.DisplayName)
	if err != nil {
		logger.Warn("issue access token failed",
			zap.String("trace_id", traceID),
			zap.String("account_id", ap.AccountID),
			zap.Error(err))
	}

	response.Success(&c.Controller, map[string]interface{}{
		"account_id":      ap.AccountID,
		"opening_balance": ap.OpeningBalance,
		"access_token":    accessToken,
	}, traceID)
}

// Logout 注销当前令牌：POST /api/account/logout
// 令牌加入 Redis 黑名单直至自然过期
func (c *AccountController) Logout() {
	traceID := reqhelper.GetTraceID(c.Ctx)

	authHeader := strings.TrimSpace(c.Ctx.Input.Header("Authorization"))
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		// 演示模式下没有令牌可注销
		response.Success(&c.Controller, nil, traceID)
		return
	}
	tokenStr := parts[1]

	claims, err := auth.VerifyToken(c.Ctx.Request.Context(), tokenStr)
	if err != nil {
		response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		return
	}

	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := auth.RevokeToken(c.Ctx.Request.Context(), tokenStr, expiresAt); err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, nil, traceID)
}

// Balance 余额查询：GET /api/account/balance
// 返回无锁读取的展示快照
func (c *AccountController) Balance() {
	traceID := reqhelper.GetTraceID(c.Ctx)

	accountID := ""
	if v := c.Ctx.Input.GetData("account_id"); v != nil {
		if aid, ok := v.(string); ok {
			accountID = aid
		}
	}
	if accountID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	bal, err := acctSvc.Balance(c.Ctx.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.Error(&c.Controller, 404, response.CodeAccountNotFound, traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"account_id":      accountID,
		"balance":         bal,
		"balance_display": helper.FormatCents(bal),
	}, traceID)
}

// Rounds 局历史查询：GET /api/account/rounds?limit=20
func (c *AccountController) Rounds() {
	traceID := reqhelper.GetTraceID(c.Ctx)

	accountID := ""
	if v := c.Ctx.Input.GetData("account_id"); v != nil {
		if aid, ok := v.(string); ok {
			accountID = aid
		}
	}
	if accountID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	limit := 20
	if ls := c.Ctx.Input.Query("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil {
			limit = n
		}
	}

	rounds, err := acctSvc.Rounds(c.Ctx.Request.Context(), accountID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	list := make([]map[string]interface{}, 0, len(rounds))
	for _, r := range rounds {
		reels, _ := r.ReelSymbols()
		list = append(list, map[string]interface{}{
			"round_id":   r.RoundID,
			"game_type":  r.GameType,
			"bet_amount": r.BetAmount,
			"payout":     r.Payout,
			"reels":      reels,
			"created_at": r.CreatedAt,
		})
	}

	response.Success(&c.Controller, map[string]interface{}{
		"account_id": accountID,
		"rounds":     list,
	}, traceID)
}
