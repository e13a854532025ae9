// Package generation talks to the chat-completion service that writes doc comments.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/jdoc/internal/stream"
)

const (
	// DefaultEndpoint is the base URL of the generation service.
	DefaultEndpoint = "http://127.0.0.1:5001"
	// DefaultModel is the model identifier sent with each request.
	DefaultModel = "deepseek-r1-standard"
	// DefaultTemperature is the sampling temperature sent with each request.
	DefaultTemperature = 0.8
	// DefaultTimeout bounds a single generation request.
	DefaultTimeout = 120 * time.Second
	// DefaultStopTimeout bounds the cancellation notice.
	DefaultStopTimeout = 10 * time.Second

	completionsPath           = "/api/v1/chat/completions"
	stopPath                  = "/api/v1/stop"
	roleUser                  = "user"
	headerAuthorization       = "Authorization"
	headerContentType         = "Content-Type"
	headerAccept              = "Accept"
	headerRequestID           = "X-Request-ID"
	contentTypeJSON           = "application/json"
	authorizationBearerPrefix = "Bearer "
	errorBodyLimit            = 8 * 1024

	promptTemplate = "Add a detailed doc comment to the following java method or class:\n" +
		"%s\n" +
		"The doc comment should describe what the method or class does. " +
		"Only output the doc comment for the following java code, wrapped with /** ... */. " +
		"Do not output the method code or any explanation.\n" +
		"Don't include any explanations in your response."
)

var (
	// ErrServiceCall reports a transport failure, timeout, or non-success status.
	ErrServiceCall = errors.New("generation service call failed")
	errMissingKey  = errors.New("generation service credential is required")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the JSON body posted to the completions endpoint.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Client issues generation and stop requests.
type Client struct {
	client      httpClient
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	stopTimeout time.Duration
	reassembler stream.Reassembler
}

// NewClient constructs a Client for apiKey. A nil httpClient selects http.DefaultClient;
// per-request deadlines come from the configured timeouts.
func NewClient(client httpClient, apiKey string) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Client{}, errMissingKey
	}
	if client == nil {
		client = http.DefaultClient
	}
	return Client{
		client:      client,
		endpoint:    DefaultEndpoint,
		apiKey:      strings.TrimSpace(apiKey),
		model:       DefaultModel,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		stopTimeout: DefaultStopTimeout,
		reassembler: stream.NewReassembler("", ""),
	}, nil
}

func (client Client) WithEndpoint(endpoint string) Client {
	if strings.TrimSpace(endpoint) == "" {
		return client
	}
	client.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return client
}

func (client Client) WithModel(model string) Client {
	if strings.TrimSpace(model) == "" {
		return client
	}
	client.model = strings.TrimSpace(model)
	return client
}

func (client Client) WithTemperature(temperature float64) Client {
	client.temperature = temperature
	return client
}

func (client Client) WithTimeout(duration time.Duration) Client {
	if duration <= 0 {
		return client
	}
	client.timeout = duration
	return client
}

func (client Client) WithStopTimeout(duration time.Duration) Client {
	if duration <= 0 {
		return client
	}
	client.stopTimeout = duration
	return client
}

// WithReassembler replaces the fragment parser applied to response bodies.
func (client Client) WithReassembler(reassembler stream.Reassembler) Client {
	client.reassembler = reassembler
	return client
}

// Prompt renders the fixed instruction for declaration source text.
func Prompt(declaration string) string {
	return fmt.Sprintf(promptTemplate, declaration)
}

// Generate asks the service for a doc comment and returns the reassembled response text.
func (client Client) Generate(ctx context.Context, declaration string) (string, error) {
	requestContext, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	payload, marshalErr := json.Marshal(CompletionRequest{
		Model:       client.model,
		Messages:    []Message{{Role: roleUser, Content: Prompt(declaration)}},
		Temperature: client.temperature,
		Stream:      false,
	})
	if marshalErr != nil {
		return "", fmt.Errorf("encode completion request: %w", marshalErr)
	}
	request, requestErr := client.buildRequest(requestContext, client.endpoint+completionsPath, payload)
	if requestErr != nil {
		return "", requestErr
	}
	response, responseErr := client.client.Do(request)
	if responseErr != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceCall, responseErr)
	}
	defer response.Body.Close()
	if statusErr := checkStatus(response, request.URL.String()); statusErr != nil {
		return "", statusErr
	}
	text, readErr := client.reassembler.ReadAll(response.Body)
	if readErr != nil {
		return "", fmt.Errorf("%w: %w", ErrServiceCall, readErr)
	}
	return text, nil
}

// Stop asks the service to abandon in-flight generation. It uses its own deadline
// so it can run after ctx's parent was canceled.
func (client Client) Stop(ctx context.Context) error {
	requestContext, cancel := context.WithTimeout(ctx, client.stopTimeout)
	defer cancel()

	request, requestErr := client.buildRequest(requestContext, client.endpoint+stopPath, nil)
	if requestErr != nil {
		return requestErr
	}
	response, responseErr := client.client.Do(request)
	if responseErr != nil {
		return fmt.Errorf("%w: %w", ErrServiceCall, responseErr)
	}
	defer response.Body.Close()
	if statusErr := checkStatus(response, request.URL.String()); statusErr != nil {
		return statusErr
	}
	_, _ = io.Copy(io.Discard, response.Body)
	return nil
}

func (client Client) buildRequest(ctx context.Context, url string, payload []byte) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	request.Header.Set(headerAuthorization, authorizationBearerPrefix+client.apiKey)
	request.Header.Set(headerContentType, contentTypeJSON)
	request.Header.Set(headerAccept, contentTypeJSON)
	request.Header.Set(headerRequestID, uuid.NewString())
	return request, nil
}

func checkStatus(response *http.Response, url string) error {
	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
	return fmt.Errorf("%w: unexpected status %d for %s: %s", ErrServiceCall, response.StatusCode, url, strings.TrimSpace(string(body)))
}
