// Package openai adapts the go-openai chat completion API (Azure OpenAI or
// OpenAI) to the request shape the extraction engine needs.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds a single chat call
const DefaultTimeout = 60 * time.Second

var (
	// ErrNoMessages is returned when a request carries no messages
	ErrNoMessages = errors.New("chat request has no messages")
	// ErrNoChoices is returned when the model answers with no choices
	ErrNoChoices = errors.New("chat response has no choices")
	// ErrNoFunction is returned for function mode without a definition
	ErrNoFunction = errors.New("function mode requires a function definition")
)

// ChatAPI is the subset of the go-openai client used here
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Mode selects how the model is asked to shape its answer
type Mode int

const (
	ModeText Mode = iota
	ModeJSON
	ModeFunction
)

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Function describes a callable function with a JSON schema for its arguments
type Function struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request is a single chat completion call
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
	Mode        Mode
	Function    *Function
}

// Reply carries the model answer. FunctionName and FunctionArgs are set when
// the model answered with a function call.
type Reply struct {
	Content      string
	FunctionName string
	FunctionArgs string
}

// Client wraps a chat API with a model name and per-call timeout
type Client struct {
	api     ChatAPI
	model   string
	timeout time.Duration
}

// Config configures a Client
type Config struct {
	// Azure settings take precedence when all three are set
	AzureAPIKey     string
	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	OpenAIAPIKey string
	OpenAIModel  string

	Timeout time.Duration
}

// NewClient creates a Client for Azure OpenAI or OpenAI. Missing credentials
// are reported as domain.ErrLLMNotConfigured.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch {
	case cfg.AzureAPIKey != "" && cfg.AzureEndpoint != "" && cfg.AzureDeployment != "":
		oc := openai.DefaultAzureConfig(cfg.AzureAPIKey, cfg.AzureEndpoint)
		if cfg.AzureAPIVersion != "" {
			oc.APIVersion = cfg.AzureAPIVersion
		}
		deployment := cfg.AzureDeployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
		return NewClientWithAPI(openai.NewClientWithConfig(oc), deployment, timeout), nil

	case cfg.OpenAIAPIKey != "":
		model := cfg.OpenAIModel
		if model == "" {
			model = openai.GPT4oMini
		}
		return NewClientWithAPI(openai.NewClient(cfg.OpenAIAPIKey), model, timeout), nil
	}
	return nil, domain.ErrLLMNotConfigured
}

// NewClientFromConfig builds a Client from application config
func NewClientFromConfig(cfg *config.Config) (*Client, error) {
	return NewClient(Config{
		AzureAPIKey:     cfg.AzureAPIKey,
		AzureEndpoint:   cfg.AzureEndpoint,
		AzureDeployment: cfg.AzureDeployment,
		AzureAPIVersion: cfg.AzureAPIVersion,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		Timeout:         cfg.LLMTimeout,
	})
}

// NewClientWithAPI wraps an existing chat API
func NewClientWithAPI(api ChatAPI, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{api: api, model: model, timeout: timeout}
}

// Model returns the model or deployment name sent with each request
func (c *Client) Model() string {
	return c.model
}

// Complete sends one chat completion request
func (c *Client) Complete(ctx context.Context, req Request) (Reply, error) {
	if len(req.Messages) == 0 {
		return Reply{}, ErrNoMessages
	}

	oreq := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		oreq.Messages = append(oreq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	switch req.Mode {
	case ModeJSON:
		oreq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	case ModeFunction:
		if req.Function == nil {
			return Reply{}, ErrNoFunction
		}
		oreq.Functions = []openai.FunctionDefinition{{
			Name:        req.Function.Name,
			Description: req.Function.Description,
			Parameters:  req.Function.Parameters,
		}}
		oreq.FunctionCall = map[string]string{"name": req.Function.Name}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, oreq)
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	reply := Reply{Content: msg.Content}
	if msg.FunctionCall != nil {
		reply.FunctionName = msg.FunctionCall.Name
		reply.FunctionArgs = msg.FunctionCall.Arguments
	}
	return reply, nil
}
