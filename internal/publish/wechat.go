package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"vidpress/internal/logging"
	"vidpress/internal/retry"
	"vidpress/internal/services"
)

const (
	defaultWeChatBaseURL = "https://api.weixin.qq.com"
	tokenCacheKey        = "access_token"
	tokenSafetyMargin    = 5 * time.Minute
)

// WeChat error codes that change how a failure is classified.
const (
	wechatSystemBusy   = -1
	wechatTokenInvalid = 40001
	wechatTokenExpired = 42001
	wechatTokenStale   = 40014
	wechatRateLimited  = 45009
)

// WeChatConfig configures the official-account content image upload.
type WeChatConfig struct {
	AppID      string
	AppSecret  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// WeChat uploads article images and returns their CDN URLs.
type WeChat struct {
	appID     string
	appSecret string
	baseURL   string
	client    *http.Client
	logger    *slog.Logger

	mu     sync.Mutex
	tokens *cache.Cache
}

type wechatError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	wechatError
}

type uploadImgResponse struct {
	URL string `json:"url"`
	wechatError
}

// NewWeChat validates credentials. The access token is fetched lazily.
func NewWeChat(cfg WeChatConfig) (*WeChat, error) {
	appID := strings.TrimSpace(cfg.AppID)
	secret := strings.TrimSpace(cfg.AppSecret)
	if appID == "" || secret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "wechat", "app id and app secret required", nil)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultWeChatBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WeChat{
		appID:     appID,
		appSecret: secret,
		baseURL:   base,
		client:    client,
		logger:    logging.NewComponentLogger(cfg.Logger, "wechat"),
		tokens:    cache.New(cache.NoExpiration, 0),
	}, nil
}

// Name identifies the backend.
func (w *WeChat) Name() string { return "wechat" }

// Upload posts the image to media/uploadimg. WeChat chooses the final URL,
// so obj.Key only names the multipart file.
func (w *WeChat) Upload(ctx context.Context, obj Object) (string, error) {
	token, err := w.accessToken(ctx)
	if err != nil {
		return "", err
	}
	body, contentType, err := multipartBody(obj)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "wechat uploadimg", obj.Path, err)
	}

	endpoint := fmt.Sprintf("%s/cgi-bin/media/uploadimg?access_token=%s", w.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "wechat uploadimg", "", err)
	}
	req.Header.Set("Content-Type", contentType)

	var parsed uploadImgResponse
	if err := w.do(ctx, req, "wechat uploadimg", &parsed); err != nil {
		return "", err
	}
	if parsed.ErrCode != 0 {
		return "", w.apiError("wechat uploadimg", parsed.wechatError)
	}
	if strings.TrimSpace(parsed.URL) == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", "wechat uploadimg", "empty url", nil)
	}
	return parsed.URL, nil
}

// Verify fetches an access token.
func (w *WeChat) Verify(ctx context.Context) error {
	_, err := w.accessToken(ctx)
	return err
}

func (w *WeChat) accessToken(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cached, ok := w.tokens.Get(tokenCacheKey); ok {
		return cached.(string), nil
	}

	query := url.Values{}
	query.Set("grant_type", "client_credential")
	query.Set("appid", w.appID)
	query.Set("secret", w.appSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/cgi-bin/token?"+query.Encode(), nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "publish", "wechat token", "", err)
	}
	var parsed accessTokenResponse
	if err := w.do(ctx, req, "wechat token", &parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", w.apiError("wechat token", parsed.wechatError)
	}
	ttl := time.Duration(parsed.ExpiresIn)*time.Second - tokenSafetyMargin
	if ttl <= 0 {
		ttl = time.Minute
	}
	w.tokens.Set(tokenCacheKey, parsed.AccessToken, ttl)
	w.logger.Debug("wechat access token refreshed", logging.Duration("ttl", ttl))
	return parsed.AccessToken, nil
}

func (w *WeChat) do(ctx context.Context, req *http.Request, op string, out any) error {
	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "publish", op, "", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publish", op, "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return retry.NewStatusError(op, resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrExternalTool, "publish", op, "decode response", err)
	}
	return nil
}

// apiError maps WeChat errcodes onto the retry classes. Token errors drop
// the cached token so the retry fetches a fresh one.
func (w *WeChat) apiError(op string, e wechatError) error {
	msg := fmt.Sprintf("errcode %d: %s", e.ErrCode, strings.TrimSpace(e.ErrMsg))
	switch e.ErrCode {
	case wechatTokenInvalid, wechatTokenExpired, wechatTokenStale:
		w.tokens.Delete(tokenCacheKey)
		return services.Wrap(services.ErrTransient, "publish", op, msg, nil)
	case wechatRateLimited:
		return services.Wrap(services.ErrRateLimited, "publish", op, msg, nil)
	case wechatSystemBusy:
		return services.Wrap(services.ErrTransient, "publish", op, msg, nil)
	default:
		return services.Wrap(services.ErrExternalTool, "publish", op, msg, nil)
	}
}

func multipartBody(obj Object) (io.Reader, string, error) {
	file, err := os.Open(obj.Path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	name := filepath.Base(obj.Key)
	if name == "." || name == "/" || name == "" {
		name = filepath.Base(obj.Path)
	}
	part, err := writer.CreateFormFile("media", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}
