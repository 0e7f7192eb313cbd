package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"limi-configurator/internal/session"
)

// SessionHandler 会话编辑 Handler
// 所有配置变更都走这里：校验 → 变更领域模型 → 给渲染器发批次 → 回显结果
type SessionHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionHandler 创建会话 Handler
func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

const sessionsPrefix = "/light/api/v1/sessions/"

// CreateSession 新建编辑会话
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to create session"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
}

// ServeHTTP 分发 /light/api/v1/sessions/{id}/... 路由
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, sessionsPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s, err := h.sessions.Get(r.Context(), parts[0])
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("session not found"))
			return
		}
		h.logger.Error("Failed to resolve session", zap.String("session_id", parts[0]), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to resolve session"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.dispatchAction(w, r, s, strings.Join(parts[1:], "/"))
}

// dispatchAction 分发会话操作
func (h *SessionHandler) dispatchAction(w http.ResponseWriter, r *http.Request, s *session.Session, action string) {
	switch action {
	case "light-type":
		h.applyValue(w, r, s.SetLightType)
	case "base-type":
		h.applyValue(w, r, s.SetBaseType)
	case "quantity":
		var body struct {
			Value int `json:"value"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		res, err := s.SetQuantity(body.Value)
		h.writeMutation(w, res, err)
	case "system-type":
		h.applyValue(w, r, s.SetSystemType)
	case "units/design":
		h.applyUnits(w, r, s.SetUnitDesign)
	case "units/system-design":
		h.applyUnits(w, r, s.SetSystemBaseDesign)
	case "units/cable-size":
		var body struct {
			Indices []int `json:"indices"`
			Size    int   `json:"size"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		res, err := s.SetUnitCableSize(body.Indices, body.Size)
		h.writeMutation(w, res, err)
	case "units/shade":
		var body struct {
			Index int    `json:"index"`
			Shade string `json:"shade"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		res, err := s.SetUnitShade(body.Index, body.Shade)
		h.writeMutation(w, res, err)
	case "colors/base":
		h.applyValue(w, r, s.SetBaseColor)
	case "colors/connector":
		h.applyValue(w, r, s.SetConnectorColor)
	case "selection/toggle":
		var body struct {
			Index int `json:"index"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		selected, err := s.ToggleSelect(body.Index)
		if err != nil {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"selected": selected}))
	case "selection/all":
		writeJSON(w, http.StatusOK, Ok(map[string]any{"selected": s.SelectAll()}))
	case "selection/clear":
		s.ClearSelection()
		writeJSON(w, http.StatusOK, Ok(map[string]any{"selected": []int{}}))
	case "steps/open":
		var body struct {
			Step string `json:"step"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		if err := s.OpenStep(body.Step); err != nil {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
	case "steps/close":
		s.CloseNavigation()
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
	case "tour/begin":
		s.TourBegin()
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
	case "tour/accept":
		if err := s.TourAccept(); err != nil {
			writeJSON(w, http.StatusOK, Fail(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
	case "tour/skip":
		s.TourSkip()
		writeJSON(w, http.StatusOK, Ok(s.CurrentView()))
	case "replay":
		writeJSON(w, http.StatusOK, Ok(s.Replay()))
	case "hotspot":
		var body struct {
			On bool `json:"on"`
		}
		if err := readBodyJSON(r, &body); err != nil {
			writeJSON(w, http.StatusOK, Fail("invalid body"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(s.Hotspot(body.On)))
	case "high-quality":
		writeJSON(w, http.StatusOK, Ok(s.RequestHighQuality()))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// applyValue 单值变更的通用处理
func (h *SessionHandler) applyValue(w http.ResponseWriter, r *http.Request, apply func(string) (session.Result, error)) {
	var body struct {
		Value string `json:"value"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	res, err := apply(body.Value)
	h.writeMutation(w, res, err)
}

// applyUnits 批量 unit 变更的通用处理
func (h *SessionHandler) applyUnits(w http.ResponseWriter, r *http.Request, apply func([]int, string) (session.Result, error)) {
	var body struct {
		Indices []int  `json:"indices"`
		Design  string `json:"design"`
	}
	if err := readBodyJSON(r, &body); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}
	res, err := apply(body.Indices, body.Design)
	h.writeMutation(w, res, err)
}

// writeMutation 统一写变更结果（校验失败回 Fail，配置保持不变）
func (h *SessionHandler) writeMutation(w http.ResponseWriter, res session.Result, err error) {
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
