package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/Duel-Learn-Devs/duel-learn/internal/logger"
)

// OracleClient is the opaque text-generation service. Everything downstream
// treats its output as untrusted text that must be validated before use.
type OracleClient interface {
  Complete(ctx context.Context, system string, user string) (string, error)
}

type oracleClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  httpClient *http.Client
  maxRetries int
}

func NewOracleClient(log *logger.Logger) (OracleClient, error) {
  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := os.Getenv("OPENAI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.openai.com"
  }

  model := os.Getenv("OPENAI_MODEL")
  if model == "" {
    model = "gpt-4o-mini"
  }

  timeoutSec := 60
  if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 3
  if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &oracleClient{
    log:        log.With("service", "OracleClient"),
    baseURL:    baseURL,
    apiKey:     apiKey,
    model:      model,
    httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries: maxRetries,
  }, nil
}

type oracleHTTPError struct {
  StatusCode int
  Body       string
}

func (e *oracleHTTPError) Error() string {
  return fmt.Sprintf("oracle http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
    return true
  }
  return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  var netErr net.Error
  if errors.As(err, &netErr) && netErr.Timeout() {
    return true
  }
  var httpErr *oracleHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

// +/- 20%
func jitterSleep(base time.Duration) time.Duration {
  if base <= 0 {
    return 0
  }
  delta := base.Seconds() * 0.2
  low := base.Seconds() - delta
  if low < 0 {
    low = 0
  }
  high := base.Seconds() + delta
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *oracleClient) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return nil, nil, err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &oracleHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *oracleClient) do(ctx context.Context, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s (cap 10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, path, body)
    if err == nil {
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("oracle decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }
    if attempt == c.maxRetries {
      return err
    }

    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }
    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("Oracle request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

type chatCompletionsRequest struct {
  Model    string `json:"model"`
  Messages []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  } `json:"messages"`
  Temperature float64 `json:"temperature,omitempty"`
}

type chatCompletionsResponse struct {
  Choices []struct {
    Message struct {
      Content string `json:"content"`
    } `json:"message"`
  } `json:"choices"`
}

func (c *oracleClient) Complete(ctx context.Context, system string, user string) (string, error) {
  req := chatCompletionsRequest{
    Model:       c.model,
    Temperature: 0.7,
  }
  req.Messages = []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  }{
    {Role: "system", Content: system},
    {Role: "user", Content: user},
  }

  var resp chatCompletionsResponse
  if err := c.do(ctx, "/v1/chat/completions", req, &resp); err != nil {
    return "", err
  }
  if len(resp.Choices) == 0 {
    return "", fmt.Errorf("oracle returned no choices")
  }
  return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
