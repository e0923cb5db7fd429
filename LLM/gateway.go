package LLM

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"Atelier/Models"

	"gorm.io/gorm"
)

const (
	MethodReport = "report"
	MethodTask   = "task"
)

// Gateway wraps the chat client with bounded retries, reply parsing and
// an audit trail. All scheduled jobs and controllers talk to the model
// through it.
type Gateway struct {
	Client     *ChatClient
	DB         *gorm.DB
	MaxRetries int
	RetryDelay time.Duration
}

func NewGateway(client *ChatClient, db *gorm.DB) *Gateway {
	maxRetries, _ := strconv.Atoi(os.Getenv("LLM_MAX_RETRIES"))
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Gateway{
		Client:     client,
		DB:         db,
		MaxRetries: maxRetries,
		RetryDelay: 2 * time.Second,
	}
}

// Complete sends the prompt, retrying transport failures up to
// MaxRetries with exponential backoff. Every completed call, success or
// final failure, leaves an audit row.
func (g *Gateway) Complete(userID uint, method, prompt string, opts CompletionOptions) (string, error) {
	var reply string
	var err error

	for attempt := 0; attempt <= g.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.RetryDelay * time.Duration(1<<(attempt-1))
			log.Printf("LLM retry %d/%d after %v", attempt, g.MaxRetries, delay)
			time.Sleep(delay)
		}
		reply, err = g.Client.Complete(prompt, opts)
		if err == nil {
			break
		}
		log.Printf("LLM call failed (attempt %d/%d): %v", attempt+1, g.MaxRetries+1, err)
	}

	g.record(userID, method, prompt, reply, err)
	if err != nil {
		return "", fmt.Errorf("LLM request failed after %d attempts: %w", g.MaxRetries+1, err)
	}
	return reply, nil
}

// CompleteJSON sends the prompt expecting a JSON object reply. Replies
// wrapped in prose or fenced code blocks are tolerated. A parse failure
// retries the whole request, not just the extraction; when all attempts
// are exhausted the caller-supplied fallback is returned.
func (g *Gateway) CompleteJSON(userID uint, method, prompt string, opts CompletionOptions, fallback map[string]interface{}) map[string]interface{} {
	opts.JSONMode = true

	var reply string
	var lastErr error

	for attempt := 0; attempt <= g.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.RetryDelay * time.Duration(1<<(attempt-1))
			log.Printf("LLM JSON retry %d/%d after %v", attempt, g.MaxRetries, delay)
			time.Sleep(delay)
		}

		reply, lastErr = g.Client.Complete(prompt, opts)
		if lastErr != nil {
			log.Printf("LLM call failed (attempt %d/%d): %v", attempt+1, g.MaxRetries+1, lastErr)
			continue
		}

		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(ExtractJSON(reply)), &parsed); err != nil {
			lastErr = fmt.Errorf("reply is not valid JSON: %v", err)
			log.Printf("LLM reply parse failed (attempt %d/%d): %v", attempt+1, g.MaxRetries+1, lastErr)
			continue
		}

		g.record(userID, method, prompt, reply, nil)
		return parsed
	}

	g.record(userID, method, prompt, reply, lastErr)
	log.Printf("LLM JSON request exhausted retries, using fallback: %v", lastErr)
	return fallback
}

// CompleteNumber sends the prompt expecting a numeric reply and parses
// it. When no number can be recovered after all retries, fallback is
// returned instead of an error.
func (g *Gateway) CompleteNumber(userID uint, method, prompt string, opts CompletionOptions, fallback float64) float64 {
	var reply string
	var lastErr error

	for attempt := 0; attempt <= g.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := g.RetryDelay * time.Duration(1<<(attempt-1))
			time.Sleep(delay)
		}

		reply, lastErr = g.Client.Complete(prompt, opts)
		if lastErr != nil {
			log.Printf("LLM call failed (attempt %d/%d): %v", attempt+1, g.MaxRetries+1, lastErr)
			continue
		}

		value, err := ParseNumber(reply)
		if err != nil {
			lastErr = err
			log.Printf("LLM numeric parse failed (attempt %d/%d): %v", attempt+1, g.MaxRetries+1, err)
			continue
		}

		g.record(userID, method, prompt, reply, nil)
		return value
	}

	g.record(userID, method, prompt, reply, lastErr)
	log.Printf("LLM numeric request exhausted retries, using fallback %.2f: %v", fallback, lastErr)
	return fallback
}

// record persists the audit row. Persistence problems are logged and
// swallowed so they cannot fail the caller's flow.
func (g *Gateway) record(userID uint, method, request, received string, callErr error) {
	if g.DB == nil {
		return
	}
	row := Models.LLMRecord{
		UserID:       userID,
		Method:       method,
		RequestText:  request,
		ReceivedText: received,
	}
	if callErr != nil {
		row.ErrorText = callErr.Error()
	}
	if err := g.DB.Create(&row).Error; err != nil {
		log.Printf("Failed to save LLM audit record: %v", err)
	}
}
