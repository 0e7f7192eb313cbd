package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSessionRoutes 注册会话编辑路由
func (r *Router) RegisterSessionRoutes(h *SessionHandler) {
	r.Handle("/light/api/v1/sessions", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CreateSession(w, req)
	})
	// /light/api/v1/sessions/{id}/... 由 handler 内部分发
	r.mux.Handle("/light/api/v1/sessions/", h)
}

// RegisterConfigRoutes 注册存档路由
func (r *Router) RegisterConfigRoutes(h *ConfigHandler) {
	r.Handle("/light/api/v1/light-configs", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.SaveConfig(w, req)
		case http.MethodGet:
			h.ListUserConfigs(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.mux.Handle("/light/api/v1/light-configs/", h)
}
