package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 账号服务客户端
// 保存配置前校验用户的会话令牌；配置器自身不管账号体系

var (
	ErrNotAuthenticated = errors.New("session token is not authenticated")
	ErrTokenExpired     = errors.New("session token expired")
)

// SessionVerifier 会话令牌校验接口
type SessionVerifier interface {
	// VerifySession 校验令牌，成功返回user_id
	VerifySession(ctx context.Context, token string) (string, error)
}

// accountsResponse 账号服务统一响应
type accountsResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		UserID string `json:"user_id"`
	} `json:"data"`
}

// AccountsClient 账号服务 API 客户端
type AccountsClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// 确保实现了接口
var _ SessionVerifier = (*AccountsClient)(nil)

// NewAccountsClient 创建账号服务客户端
func NewAccountsClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AccountsClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AccountsClient{
		httpClient: client,
		logger:     logger,
	}
}

// VerifySession 校验会话令牌
func (c *AccountsClient) VerifySession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotAuthenticated
	}

	var response accountsResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&response).
		Post("/auth/api/v1/sessions/verify")
	if err != nil {
		c.logger.Error("Accounts API call failed", zap.Error(err))
		return "", fmt.Errorf("failed to call accounts API: %w", err)
	}

	switch response.Code {
	case 2000:
		if response.Data.UserID == "" {
			return "", ErrNotAuthenticated
		}
		return response.Data.UserID, nil
	case 60401:
		return "", ErrTokenExpired
	default:
		c.logger.Warn("Session verification rejected",
			zap.Int("code", response.Code),
			zap.String("msg", response.Message),
			zap.Int("status_code", resp.StatusCode()),
		)
		return "", ErrNotAuthenticated
	}
}
