// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/duelhouse/wager-service/internal/middleware"
)

// Routes assembles the full HTTP surface: public account endpoints, the
// authenticated wagering API, and the admin area.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	logged := middleware.LogMiddleware(s.Log)
	authed := middleware.Auth(s.Log, s.Bans)
	admin := middleware.AdminOnly(s.Cfg)

	// account endpoints
	mux.Handle("POST /user/register", http.HandlerFunc(s.RegisterHandler))
	mux.Handle("POST /user/login", http.HandlerFunc(s.LoginHandler))
	mux.Handle("GET /user/balance", authed(http.HandlerFunc(s.BalanceHandler)))
	mux.Handle("GET /user/history", authed(http.HandlerFunc(s.HistoryHandler)))
	mux.Handle("POST /user/cashout", authed(http.HandlerFunc(s.RequestCashoutHandler)))
	mux.Handle("GET /user/cashouts", authed(http.HandlerFunc(s.MyCashoutsHandler)))

	// wagering endpoints
	mux.Handle("POST /rooms/create", authed(http.HandlerFunc(s.CreateRoomHandler)))
	mux.Handle("GET /rooms/list", authed(http.HandlerFunc(s.ListRoomsHandler)))
	mux.Handle("GET /rooms/mine", authed(http.HandlerFunc(s.MyRoomsHandler)))
	mux.Handle("POST /rooms/join", authed(http.HandlerFunc(s.JoinRoomHandler)))
	mux.Handle("POST /rooms/cancel", authed(http.HandlerFunc(s.CancelRoomHandler)))
	mux.Handle("POST /rooms/pick", authed(http.HandlerFunc(s.PickSideHandler)))
	mux.Handle("POST /rooms/play", authed(http.HandlerFunc(s.PlayHandler)))
	mux.Handle("POST /rooms/rematch", authed(http.HandlerFunc(s.RematchHandler)))

	// notifications
	mux.Handle("/notifications/ws", http.HandlerFunc(s.NotificationsWSHandler))

	// admin endpoints
	mux.Handle("POST /admin/ban", authed(admin(http.HandlerFunc(s.BanHandler))))
	mux.Handle("POST /admin/unban", authed(admin(http.HandlerFunc(s.UnbanHandler))))
	mux.Handle("GET /admin/bans", authed(admin(http.HandlerFunc(s.ListBansHandler))))
	mux.Handle("POST /admin/deposit", authed(admin(http.HandlerFunc(s.DepositHandler))))
	mux.Handle("GET /admin/cashouts", authed(admin(http.HandlerFunc(s.PendingCashoutsHandler))))
	mux.Handle("POST /admin/cashouts/process", authed(admin(http.HandlerFunc(s.ProcessCashoutHandler))))
	mux.Handle("POST /admin/cashouts/cancel", authed(admin(http.HandlerFunc(s.CancelCashoutHandler))))

	return logged(mux)
}
