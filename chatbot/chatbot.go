package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"snap2sell/gateway"
	"snap2sell/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxQuestionLength is the longest question the assistant accepts.
const MaxQuestionLength = 2000

const (
	Greeting       = "Hello! 👋 I'm your agriculture assistant. Ask me anything about crops, farming, prices, or sustainable agriculture!"
	NoAnswer       = "Sorry, I couldn't process that. Please try again."
	ErrorAnswer    = "Sorry, I encountered an error. Please try again later."
	maxTranscript  = 200
	defaultTimeout = 60 * time.Second
)

var ErrInvalidQuestion = errors.New("invalid question")

// Service wraps the /chatbot resource.
type Service struct {
	api *gateway.Client
}

func NewService(api *gateway.Client) *Service {
	return &Service{api: api}
}

// ValidateQuestion trims q and checks it is non-empty and within MaxQuestionLength characters.
func ValidateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("%w: question cannot be empty", ErrInvalidQuestion)
	}
	if utf8.RuneCountInString(q) > MaxQuestionLength {
		return "", fmt.Errorf("%w: question is longer than %d characters", ErrInvalidQuestion, MaxQuestionLength)
	}
	return q, nil
}

func (s *Service) Ask(ctx context.Context, question string) (models.Answer, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return models.Answer{}, err
	}
	return gateway.PostData[models.Answer](ctx, s.api, "/chatbot/ask", map[string]string{"question": q})
}

func (s *Service) Suggestions(ctx context.Context) ([]string, error) {
	out, err := gateway.GetData[models.Suggestions](ctx, s.api, "/chatbot/suggestions", nil)
	if err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// KBStats reports the knowledge base's document counts; the shape is backend-defined.
func (s *Service) KBStats(ctx context.Context) (map[string]any, error) {
	return gateway.GetData[map[string]any](ctx, s.api, "/chatbot/kb-stats", nil)
}

// AddDocument feeds a text document to the knowledge base (admin only).
func (s *Service) AddDocument(ctx context.Context, title, content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("document content is required")
	}
	return s.api.Post(ctx, "/chatbot/add-document", map[string]string{"title": title, "content": content}, nil)
}

// Message is one entry in a conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"type"` // "user" or "bot"
	Text      string    `json:"text"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation keeps a chat transcript. Failures become bot messages rather than errors.
type Conversation struct {
	svc *Service
	log logrus.FieldLogger

	mu       sync.Mutex
	messages []Message
}

func NewConversation(svc *Service, log logrus.FieldLogger) *Conversation {
	return &Conversation{
		svc:      svc,
		log:      log,
		messages: []Message{newMessage("bot", Greeting)},
	}
}

// Send asks question and returns the bot's reply. Blank questions are ignored.
func (c *Conversation) Send(ctx context.Context, question string) (Message, bool) {
	q, err := ValidateQuestion(question)
	if err != nil {
		if strings.TrimSpace(question) == "" {
			return Message{}, false
		}
		reply := newMessage("bot", strings.TrimPrefix(err.Error(), ErrInvalidQuestion.Error()+": "))
		c.append(newMessage("user", question), reply)
		return reply, true
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var reply Message
	ans, err := c.svc.Ask(ctx, q)
	switch {
	case err != nil:
		c.log.WithError(err).Warn("Chatbot ask error")
		reply = newMessage("bot", ErrorAnswer)
	case strings.TrimSpace(ans.Answer) == "":
		reply = newMessage("bot", NoAnswer)
	default:
		reply = newMessage("bot", ans.Answer)
		reply.Sources = ans.Sources
	}
	c.append(newMessage("user", q), reply)
	return reply, true
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) append(msgs ...Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
	if over := len(c.messages) - maxTranscript; over > 0 {
		c.messages = append(c.messages[:0:0], c.messages[over:]...)
	}
}

func newMessage(from, text string) Message {
	return Message{ID: uuid.NewString(), From: from, Text: text, Timestamp: time.Now()}
}
