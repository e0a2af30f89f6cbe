package api

import (
	"slots-server/internal/service"
	"slots-server/internal/store"
	"slots-server/internal/ws"
)

// 控制器依赖由 main 在启动时注入
var (
	spinSvc service.SpinService
	acctSvc service.AccountService
	dataSt  store.Store
	wsHub   *ws.Hub
)

// Init 注入控制器依赖
func Init(spin service.SpinService, acct service.AccountService, st store.Store, hub *ws.Hub) {
	spinSvc = spin
	acctSvc = acct
	dataSt = st
	wsHub = hub
}
