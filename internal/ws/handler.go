package ws

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"slots-server/common/logger"
	"slots-server/internal/auth"
	"slots-server/internal/common/response"
	"slots-server/internal/config"
	"slots-server/internal/service"
)

// Handler 提供 WebSocket 入口：GET /ws?token=...
// 身份识别：优先 JWT（token 查询参数或 Authorization 头）；
// 演示模式下允许 account_id 查询参数直连
type Handler struct {
	hub     *Hub
	spinSvc service.SpinService
	acctSvc service.AccountService

	upgrader websocket.Upgrader
}

// NewHandler 构造 WebSocket 处理器
func NewHandler(hub *Hub, spinSvc service.SpinService, acctSvc service.AccountService) *Handler {
	return &Handler{
		hub:     hub,
		spinSvc: spinSvc,
		acctSvc: acctSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域策略交给 CORS 配置；WS 握手不单独限制 Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP 处理一条 WebSocket 连接的完整生命周期
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID, displayName, err := h.identify(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if displayName == "" {
		// 演示模式握手不携带展示名，回源账户资料
		if dn, derr := h.acctSvc.DisplayName(r.Context(), accountID); derr == nil {
			displayName = dn
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, accountID: accountID, displayName: displayName}
	h.hub.register(c)
	defer func() {
		h.hub.unregister(c)
		_ = conn.Close()
	}()

	// 连接建立即推送一次余额
	h.pushBalance(r, c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ws read failed",
					zap.String("account_id", c.accountID),
					zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "spin_request":
			h.handleSpin(r, c, msg)
		case "balance_request":
			h.pushBalance(r, c)
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		default:
			_ = c.writeJSON(SpinErrorMsg{
				Type:    "spin_error",
				Code:    response.CodeBadRequest,
				Message: "unknown message type",
			})
		}
	}
}

// identify 确定连接归属账户，返回账户与展示名
func (h *Handler) identify(r *http.Request) (string, string, error) {
	// 1. JWT：token 查询参数或 Authorization: Bearer 头
	tokenStr := strings.TrimSpace(r.URL.Query().Get("token"))
	if tokenStr == "" {
		if ah := strings.TrimSpace(r.Header.Get("Authorization")); ah != "" {
			parts := strings.Split(ah, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenStr = parts[1]
			}
		}
	}
	if tokenStr != "" {
		claims, err := auth.VerifyToken(r.Context(), tokenStr)
		if err != nil {
			return "", "", err
		}
		return claims.AccountID, claims.DisplayName, nil
	}

	// 2. 演示模式：account_id 查询参数直连
	if cfg := config.Get(); cfg != nil && cfg.Auth.DemoMode {
		if accountID := strings.TrimSpace(r.URL.Query().Get("account_id")); accountID != "" {
			return accountID, "", nil
		}
	}

	return "", "", auth.ErrMissingToken
}

// handleSpin 处理一次转轮请求并回推结果
func (h *Handler) handleSpin(r *http.Request, c *client, msg ClientMsg) {
	idemKey := strings.TrimSpace(msg.IdempotencyKey)
	if idemKey == "" {
		// 未携带幂等键的连接内请求按独立投注处理
		idemKey = uuid.New().String()
	}
	traceID := uuid.New().String()

	out, err := h.spinSvc.Spin(r.Context(), service.SpinInput{
		AccountID:      c.accountID,
		BetAmount:      msg.BetAmount,
		IdempotencyKey: idemKey,
		TraceID:        traceID,
	})
	if err != nil {
		_ = c.writeJSON(spinErrorFrom(err))
		return
	}

	_ = c.writeJSON(SpinResultMsg{
		Type:       "spin_result",
		RoundID:    out.RoundID,
		Reels:      out.Reels,
		Outcome:    out.Outcome,
		BetAmount:  out.BetAmount,
		Payout:     out.Payout,
		NewBalance: out.NewBalance,
		BigWin:     out.BigWin,
		Replayed:   out.Replayed,
	})

	if out.BigWin {
		h.hub.BroadcastBigWin(c.displayName, out.RoundID, out.Payout)
	}
}

// pushBalance 推送当前余额
func (h *Handler) pushBalance(r *http.Request, c *client) {
	bal, err := h.acctSvc.Balance(r.Context(), c.accountID)
	if err != nil {
		_ = c.writeJSON(spinErrorFrom(err))
		return
	}
	_ = c.writeJSON(BalanceMsg{
		Type:      "balance",
		AccountID: c.accountID,
		Balance:   bal,
	})
}

// spinErrorFrom 将服务层错误映射为出站错误消息
func spinErrorFrom(err error) SpinErrorMsg {
	code := response.CodeSystemError
	switch {
	case errors.Is(err, service.ErrInvalidWager):
		code = response.CodeInvalidWager
	case errors.Is(err, service.ErrAccountNotFound):
		code = response.CodeAccountNotFound
	case errors.Is(err, service.ErrInsufficientFunds):
		code = response.CodeInsufficientFunds
	case errors.Is(err, service.ErrDuplicateInFlight):
		code = response.CodeDuplicateInFlight
	case errors.Is(err, service.ErrPersistence):
		code = response.CodePersistenceFailure
	}
	msg := response.ErrorMessages[code]
	if msg == "" {
		msg = err.Error()
	}
	return SpinErrorMsg{Type: "spin_error", Code: code, Message: msg}
}
