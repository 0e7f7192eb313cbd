package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"limi-configurator/internal/repository"
	"limi-configurator/internal/service"
	"limi-configurator/internal/session"
)

// ConfigHandler 存档 Handler
// 保存/加载/列表/删除/导出；账号保存需要有效令牌，令牌失效时配置暂存等续存
type ConfigHandler struct {
	persistence *service.PersistenceService
	sessions    *session.Manager
	logger      *zap.Logger
}

// NewConfigHandler 创建存档 Handler
func NewConfigHandler(persistence *service.PersistenceService, sessions *session.Manager, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{persistence: persistence, sessions: sessions, logger: logger}
}

const configsPrefix = "/light/api/v1/light-configs/"

// resolveSession 按请求体里的 session_id 取会话
func (h *ConfigHandler) resolveSession(w http.ResponseWriter, r *http.Request, sessionID string) (*session.Session, bool) {
	if sessionID == "" {
		writeJSON(w, http.StatusOK, Fail("session_id is required"))
		return nil, false
	}
	s, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("session not found"))
			return nil, false
		}
		h.logger.Error("Failed to resolve session", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to resolve session"))
		return nil, false
	}
	return s, true
}

// writeSaveError 保存错误的统一映射
func (h *ConfigHandler) writeSaveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		// 配置已暂存，登录后用 resume 续存
		writeJSON(w, http.StatusUnauthorized, TokenExpired("session expired, sign in to finish saving"))
	case errors.Is(err, service.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, Fail("sign in required, your configuration is kept"))
	case errors.Is(err, session.ErrSaveInFlight),
		errors.Is(err, service.ErrSaveNameEmpty),
		errors.Is(err, service.ErrNoPendingSave):
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	default:
		h.logger.Error("Save failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to save config"))
	}
}

// SaveConfig 保存到用户账号
// POST /light/api/v1/light-configs
func (h *ConfigHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		Name      string `json:"name"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	s, ok := h.resolveSession(w, r, body.SessionID)
	if !ok {
		return
	}

	res, err := h.persistence.Save(r.Context(), s, body.Name, tokenFromReq(r))
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ListUserConfigs 用户存档列表
// GET /light/api/v1/light-configs?page=&size=
func (h *ConfigHandler) ListUserConfigs(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r.URL.Query().Get("page"), 1)
	size := parseIntParam(r.URL.Query().Get("size"), 20)

	items, total, err := h.persistence.ListUserConfigs(r.Context(), tokenFromReq(r), page, size)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

// ServeHTTP 分发 /light/api/v1/light-configs/... 路由
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, configsPrefix)

	switch {
	case rest == "local" && r.Method == http.MethodPost:
		h.SaveLocal(w, r)
	case rest == "local" && r.Method == http.MethodGet:
		h.ListLocalConfigs(w, r)
	case rest == "resume" && r.Method == http.MethodPost:
		h.ResumePendingSave(w, r)
	case strings.HasSuffix(rest, "/load") && r.Method == http.MethodPost:
		h.LoadConfig(w, r, strings.TrimSuffix(rest, "/load"))
	case strings.HasSuffix(rest, "/export") && r.Method == http.MethodGet:
		h.ExportConfig(w, r, strings.TrimSuffix(rest, "/export"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetConfig(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteConfig(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// SaveLocal 保存到本地存档（不需要登录）
func (h *ConfigHandler) SaveLocal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		Name      string `json:"name"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	s, ok := h.resolveSession(w, r, body.SessionID)
	if !ok {
		return
	}

	res, err := h.persistence.SaveLocal(r.Context(), s, body.Name)
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ListLocalConfigs 本地存档列表
func (h *ConfigHandler) ListLocalConfigs(w http.ResponseWriter, r *http.Request) {
	items, err := h.persistence.ListLocalConfigs(r.Context())
	if err != nil {
		h.logger.Error("Failed to list local configs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list local configs"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": len(items),
	}))
}

// ResumePendingSave 登录后续存之前暂存的配置
func (h *ConfigHandler) ResumePendingSave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	s, ok := h.resolveSession(w, r, body.SessionID)
	if !ok {
		return
	}

	res, err := h.persistence.ResumePendingSave(r.Context(), s, tokenFromReq(r))
	if err != nil {
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// GetConfig 存档明细
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request, configID string) {
	cfg, err := h.persistence.GetSavedConfig(r.Context(), configID)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("config not found"))
			return
		}
		h.logger.Error("Failed to get config", zap.String("config_id", configID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to get config"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg))
}

// DeleteConfig 删除存档
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request, configID string) {
	err := h.persistence.DeleteConfig(r.Context(), tokenFromReq(r), configID)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("config not found"))
			return
		}
		h.writeSaveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": configID}))
}

// LoadConfig 把存档加载到会话并全量重放
// POST /light/api/v1/light-configs/{id}/load
func (h *ConfigHandler) LoadConfig(w http.ResponseWriter, r *http.Request, configID string) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	s, ok := h.resolveSession(w, r, body.SessionID)
	if !ok {
		return
	}

	res, err := h.persistence.Load(r.Context(), s, configID)
	if err != nil {
		if errors.Is(err, session.ErrLoadInFlight) {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to load config",
			zap.String("config_id", configID),
			zap.String("session_id", body.SessionID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load config"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// ExportConfig 导出存档为 Excel 规格单
func (h *ConfigHandler) ExportConfig(w http.ResponseWriter, r *http.Request, configID string) {
	cfg, err := h.persistence.GetSavedConfig(r.Context(), configID)
	if err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("config not found"))
			return
		}
		h.logger.Error("Failed to get config for export", zap.String("config_id", configID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export config"))
		return
	}

	data, err := GenerateConfigExport(cfg)
	if err != nil {
		h.logger.Error("Failed to generate export", zap.String("config_id", configID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export config"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cfg.Name+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
