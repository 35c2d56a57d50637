package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/pkg/metrics"
)

// ErrNetwork covers everything that is not a well-formed API answer:
// transport failures, unreadable bodies and an open breaker.
var ErrNetwork = errors.New("network error")

// APIError is a non-2xx answer. Message is the body's "message" and may be
// empty, in which case callers show their own fallback.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// MessageOr returns the API message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

const (
	pathProviderLogin    = "/api/v1/auth/login"
	pathProviderRegister = "/api/v1/provider/register"
	pathPatientLogin     = "/api/v1/patient/login"
	pathPatientRegister  = "/api/v1/patient/register"
	pathAvailability     = "/api/v1/provider/availability"
)

// Client talks to the Health First API. Each call is a single exchange with
// no retries.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewClient(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	threshold := cfg.Breaker.FailureThreshold

	settings := gobreaker.Settings{
		Name:        "portal-api",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only transport failures count. API answers of any status and
		// caller cancellations do not.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		metrics: m,
		logger:  logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the role's login endpoint. The token is read
// from "token" or "accessToken"; the profile is "user" or the whole body.
func (c *Client) Login(ctx context.Context, role model.Role, email, password string) (*model.LoginResult, error) {
	path := pathProviderLogin
	if role == model.RolePatient {
		path = pathPatientLogin
	}

	var body map[string]json.RawMessage
	err := c.do(ctx, "login_"+string(role), http.MethodPost, path, "", credentials{Email: email, Password: password}, &body)
	if err != nil {
		return nil, err
	}

	token := stringField(body, "token")
	if token == "" {
		token = stringField(body, "accessToken")
	}
	if token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", ErrNetwork)
	}

	profile, ok := body["user"]
	if !ok || string(profile) == "null" {
		profile, _ = json.Marshal(body)
	}

	return &model.LoginResult{Token: token, Profile: profile}, nil
}

func (c *Client) RegisterProvider(ctx context.Context, req *model.ProviderRegistrationRequest) error {
	return c.do(ctx, "register_provider", http.MethodPost, pathProviderRegister, "", req, nil)
}

func (c *Client) RegisterPatient(ctx context.Context, req *model.PatientRegistrationRequest) error {
	return c.do(ctx, "register_patient", http.MethodPost, pathPatientRegister, "", req, nil)
}

// SubmitAvailability sends the whole draft in one PUT.
func (c *Client) SubmitAvailability(ctx context.Context, token string, draft model.AvailabilityDraft) error {
	return c.do(ctx, "save_availability", http.MethodPut, pathAvailability, token, draft, nil)
}

type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		label := "network"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			label = "breaker_open"
		}
		c.metrics.ObserveUpstream(op, label, time.Since(start))
		c.logger.Warn("upstream call failed",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp := result.(*response)
	c.metrics.ObserveUpstream(op, strconv.Itoa(resp.status), time.Since(start))
	c.logger.Debug("upstream call completed",
		zap.String("operation", op),
		zap.Int("status", resp.status),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.status < 200 || resp.status > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(resp.body, &apiErr); err != nil {
			return fmt.Errorf("%w: undecodable error body (status %d)", ErrNetwork, resp.status)
		}
		return &APIError{StatusCode: resp.status, Message: apiErr.Message}
	}

	if out == nil {
		if len(bytes.TrimSpace(resp.body)) > 0 && !json.Valid(resp.body) {
			return fmt.Errorf("%w: undecodable response body", ErrNetwork)
		}
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%w: undecodable response body: %v", ErrNetwork, err)
	}
	return nil
}

func stringField(body map[string]json.RawMessage, key string) string {
	raw, ok := body[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
