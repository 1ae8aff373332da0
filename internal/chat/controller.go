package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopium-app/scopium/internal/domain"
)

// Answerer produces the assistant reply for a repository question.
type Answerer interface {
	Answer(ctx context.Context, repoLocator, query string) (string, error)
}

// Notifier is poked when a repository is selected. Fire-and-forget:
// its result never blocks the selection and its failure is only logged.
type Notifier func(ctx context.Context, repo domain.Repository) error

// Event is a conversation append, delivered to the observer as it
// happens so push transports can forward it.
type Event struct {
	RepoID  int64          `json:"repo_id"`
	Message domain.Message `json:"message"`
}

// State describes where the controller is in the selection lifecycle.
type State string

const (
	StateUnselected State = "unselected"
	StateSelected   State = "selected"
	StateSending    State = "sending"
)

// Controller orchestrates user intents for one browser session:
// selecting a repository, sending messages, and reading conversations
// and history back out. Intents arrive sequentially from the client,
// but the controller stays responsive while a send is outstanding.
type Controller struct {
	store  *Store
	ans    Answerer
	log    *slog.Logger
	notify Notifier

	observerMu sync.RWMutex
	observer   func(Event)

	mu       sync.Mutex
	selected *domain.Repository
	inflight int

	wg sync.WaitGroup
}

// NewController creates a controller over its own store.
func NewController(store *Store, ans Answerer, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{store: store, ans: ans, log: log}
}

// SetNotifier installs the selection notifier hook.
func (c *Controller) SetNotifier(n Notifier) { c.notify = n }

// SetObserver installs the append observer.
func (c *Controller) SetObserver(fn func(Event)) {
	c.observerMu.Lock()
	c.observer = fn
	c.observerMu.Unlock()
}

// SelectRepo makes repo the current conversation target, creating its
// conversation on first selection. The notifier runs detached; the
// transition never waits for it.
func (c *Controller) SelectRepo(ctx context.Context, repo domain.Repository) {
	c.store.GetOrCreate(repo)

	c.mu.Lock()
	r := repo
	c.selected = &r
	c.mu.Unlock()

	if c.notify != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.notify(context.WithoutCancel(ctx), repo); err != nil {
				c.log.Warn("Selection notifier failed", "repo", repo.FullName, "error", err)
			}
		}()
	}
}

// Selected returns the currently selected repository, if any.
func (c *Controller) Selected() (domain.Repository, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return domain.Repository{}, false
	}
	return *c.selected, true
}

// State reports the selection lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.selected == nil:
		return StateUnselected
	case c.inflight > 0:
		return StateSending
	default:
		return StateSelected
	}
}

// SendMessage appends the user's message and requests a reply in the
// background. Exactly one terminal append follows per send: the reply
// text on success, a readable error message otherwise. The target
// conversation is bound here, at send time: a reply that completes
// after the user selected another repository still lands in the
// conversation that produced it.
//
// Blank text and sends with no selected repository are no-ops.
func (c *Controller) SendMessage(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return
	}
	repo := *c.selected
	c.inflight++
	c.mu.Unlock()

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    domain.SenderUser,
		CreatedAt: time.Now(),
	}
	if err := c.store.Append(repo.ID, userMsg); err != nil {
		// SelectRepo created the conversation, so this is a defect.
		c.log.Error("Append user message failed", "repo_id", repo.ID, "error", err)
		c.sendDone()
		return
	}
	c.store.RecordHistory(repo)
	c.emit(Event{RepoID: repo.ID, Message: userMsg})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.sendDone()

		reply, err := c.ans.Answer(context.WithoutCancel(ctx), repo.CloneURL, text)
		if err != nil {
			c.log.Warn("Answer query failed", "repo", repo.FullName, "error", err)
			reply = "Sorry, I couldn't answer that: " + err.Error()
		}

		assistantMsg := domain.Message{
			ID:        uuid.NewString(),
			Text:      reply,
			Sender:    domain.SenderAssistant,
			CreatedAt: time.Now(),
		}
		if err := c.store.Append(repo.ID, assistantMsg); err != nil {
			c.log.Error("Append assistant message failed", "repo_id", repo.ID, "error", err)
			return
		}
		c.emit(Event{RepoID: repo.ID, Message: assistantMsg})
	}()
}

// Conversation returns the repository's messages in append order.
func (c *Controller) Conversation(repoID int64) ([]domain.Message, error) {
	return c.store.ConversationOf(repoID)
}

// History returns repositories with at least one sent message, in
// first-sent order.
func (c *Controller) History() []domain.Repository {
	return c.store.History()
}

// Wait blocks until all in-flight sends and notifier calls finished.
// Used on shutdown so late replies still reach their conversations.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) sendDone() {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	c.observerMu.RLock()
	fn := c.observer
	c.observerMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}
