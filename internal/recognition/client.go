// Package recognition は食品認識サービス（外部コラボレーター）のHTTPクライアントを提供する。
// 認識サービスはテキスト、画像URL、バーコードから食品と栄養素の推定値を返す。
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize はレスポンスボディの読み取り上限（1MB）。
const maxResponseSize = 1 << 20

// Food は認識サービスが返す1つの食品の推定値。
type Food struct {
	Name       string  `json:"name"`
	Grams      float64 `json:"grams"`
	Calories   float64 `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	ModelLabel string  `json:"model_label"`
	Confidence float64 `json:"confidence"`
}

// Result は認識サービスのレスポンス。
// ConfidenceScoreはサービスが全体の信頼度を返した場合のみ設定される。
type Result struct {
	Foods           []Food   `json:"foods"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
}

// BarcodeQuery はバーコード認識のリクエスト内容。
type BarcodeQuery struct {
	Barcode            string `json:"barcode"`
	ServingDescription string `json:"serving_description,omitempty"`
	Servings           int    `json:"servings"`
}

// StatusError は認識サービスが2xx以外を返した場合のエラー。
type StatusError struct {
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("recognition service returned status %d", e.StatusCode)
}

// Client は食品認識サービスのクライアント。
// 429/5xxと通信エラーは指数バックオフでmaxAttempts回まで再試行する。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	apiKey      string
	maxAttempts int
	backoff     func(failures int) time.Duration // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// apiKeyが空の場合はAuthorizationヘッダーを送らない。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, apiKey string, maxAttempts int) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		maxAttempts: maxAttempts,
		backoff:     CalculateBackoff,
	}
}

// RecognizeText はテキスト説明から食品を推定する。
func (c *Client) RecognizeText(ctx context.Context, description string) (*Result, error) {
	return c.recognize(ctx, "text", map[string]string{"description": description})
}

// RecognizeImage は画像URLから食品を推定する。
func (c *Client) RecognizeImage(ctx context.Context, imageURL string) (*Result, error) {
	return c.recognize(ctx, "image", map[string]string{"image_url": imageURL})
}

// RecognizeBarcode はバーコードから食品を推定する。
func (c *Client) RecognizeBarcode(ctx context.Context, q BarcodeQuery) (*Result, error) {
	return c.recognize(ctx, "barcode", q)
}

// recognize は POST {baseURL}/recognize/{kind} を呼び出し、再試行を制御する。
func (c *Client) recognize(ctx context.Context, kind string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}
	endpoint := c.baseURL + "/recognize/" + kind

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, retryable, err := c.do(ctx, endpoint, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable || attempt == c.maxAttempts {
			break
		}

		delay := c.backoff(attempt - 1)
		c.logger.Warn("認識サービスの呼び出しを再試行します",
			slog.String("kind", kind),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	c.logger.Error("認識サービスの呼び出しに失敗しました",
		slog.String("kind", kind),
		slog.String("error", lastErr.Error()),
	)
	return nil, lastErr
}

// do は1回分のHTTP呼び出しを行う。2番目の戻り値は再試行可能かどうか。
func (c *Client) do(ctx context.Context, endpoint string, body []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "neocal/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 呼び出し元のキャンセルは再試行しない
		if ctx.Err() != nil {
			return nil, false, err
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch ClassifyHTTPStatus(resp.StatusCode) {
	case OutcomeRetry:
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, true, &StatusError{StatusCode: resp.StatusCode}
	case OutcomeFail:
		return nil, false, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, true, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return &result, false, nil
}

// sleepContext はdだけ待機する。途中でctxがキャンセルされた場合はctxのエラーを返す。
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
