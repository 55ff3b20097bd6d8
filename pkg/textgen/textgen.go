package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces text from a prompt. Implementations return an empty
// string on upstream failure instead of an error: text generation is a
// soft dependency and each mode decides whether an empty response is
// fatal to it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	Debug    bool
	Endpoint string
	Model    string
	Client   *http.Client

	// OpenAIKey switches the adapter to an OpenAI-compatible backend.
	OpenAIKey  string
	OpenAIBase string
}

// New builds a text generator. The default backend speaks the Ollama
// generate contract: POST {model, prompt, stream:false}, response has a
// single text field. With an API key set it uses the OpenAI chat API
// instead, behind the same Generator interface.
func New(cfg *Config) Generator {
	if cfg.OpenAIKey != "" {
		occ := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBase != "" {
			occ.BaseURL = cfg.OpenAIBase
		}
		return &openaiClient{
			client: openai.NewClientWithConfig(occ),
			model:  cfg.Model,
			debug:  cfg.Debug,
		}
	}
	client := cfg.Client
	if client == nil {
		// Connecting must fail fast, but generation itself can take
		// minutes on a loaded backend.
		client = &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434/api/generate"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}
	return &Client{
		client:   client,
		endpoint: endpoint,
		model:    model,
		debug:    cfg.Debug,
	}
}

// Client is the raw HTTP adapter for the local text backend.
type Client struct {
	client   *http.Client
	endpoint string
	model    string
	debug    bool
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends the prompt to the text backend and returns the raw
// response text. Transport failures and bad statuses are logged and
// reported as empty output; there are no automatic retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("textgen: couldn't marshal request: %w", err)
	}
	c.log("textgen: request %s (%d bytes)", c.model, len(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("textgen: couldn't create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", ctx.Err()
		}
		log.Printf("textgen: request failed: %v\n", err)
		return "", nil
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("textgen: couldn't read response: %v\n", err)
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		log.Printf("textgen: backend returned %d: %s\n", resp.StatusCode, msg)
		return "", nil
	}
	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		log.Printf("textgen: couldn't unmarshal response: %v\n", err)
		return "", nil
	}
	c.log("textgen: response %d bytes", len(out.Response))
	return strings.TrimSpace(out.Response), nil
}

type openaiClient struct {
	client *openai.Client
	model  string
	debug  bool
}

func (c *openaiClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.model
	if model == "" {
		model = "gpt-4o-mini"
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", ctx.Err()
		}
		log.Printf("textgen: openai request failed: %v\n", err)
		return "", nil
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
