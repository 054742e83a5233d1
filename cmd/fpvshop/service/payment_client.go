package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PaymentStatus - состояние заказа во внешней системе оплаты.
type PaymentStatus string

const (
	PaymentConfirmed  PaymentStatus = "CONFIRMED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
	PaymentProcessing PaymentStatus = "PROCESSING"
	// PaymentUnknown - система ответила 204, заказ у неё не зарегистрирован.
	PaymentUnknown PaymentStatus = "UNKNOWN"
)

const defaultRetryAfter = time.Minute

var ErrPaymentSystem = errors.New("payment system error")

// RateLimitError возвращается на 429. RetryAfter берётся из заголовка Retry-After.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("payment system rate limit, retry after %s", e.RetryAfter)
}

// HTTPPaymentClient опрашивает систему оплаты по GET {BaseURL}/api/orders/{number}.
type HTTPPaymentClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPPaymentClient(baseURL string, client *http.Client) *HTTPPaymentClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPaymentClient{BaseURL: baseURL, Client: client}
}

func (c *HTTPPaymentClient) OrderStatus(ctx context.Context, number string) (PaymentStatus, error) {
	endpoint, err := url.JoinPath(c.BaseURL, "api", "orders", number)
	if err != nil {
		return "", fmt.Errorf("invalid payment system address: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentSystem, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return PaymentUnknown, nil
	case http.StatusTooManyRequests:
		return "", &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return "", fmt.Errorf("%w: unexpected status %s", ErrPaymentSystem, resp.Status)
	}

	var body struct {
		Order  string `json:"order"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: error decoding response: %w", ErrPaymentSystem, err)
	}
	if body.Order != "" && body.Order != number {
		return "", fmt.Errorf("%w: response for order %s, asked for %s", ErrPaymentSystem, body.Order, number)
	}
	return PaymentStatus(body.Status), nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
