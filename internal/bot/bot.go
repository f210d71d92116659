package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/tutorbot/internal/conversation"
	"github.com/example/tutorbot/internal/database"
	"github.com/example/tutorbot/internal/review"
	"github.com/example/tutorbot/internal/session"
	"github.com/example/tutorbot/pkg/models"
)

// Setup stages walked through before a conversation can start.
const (
	stageNativeLanguage   = "native_language"
	stageLearningLanguage = "learning_language"
	stageLevel            = "level"
	stageScenario         = "scenario"
)

// setupState tracks one chat's progress through profile setup.
type setupState struct {
	Stage   string
	Profile models.Profile
}

// MenuButton represents a button in an inline menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// telegramAPI is the slice of the Telegram client the handlers use.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatQueueSize bounds how many updates may wait per chat before the
// dispatcher blocks.
const chatQueueSize = 16

// Bot is the Telegram front end. Each chat maps to at most one active
// tutoring session in the shared registry. Updates for one chat are
// handled by a single worker, so setup state has one writer and turns
// reach the engine in arrival order; distinct chats run in parallel.
type Bot struct {
	api        telegramAPI
	client     *tgbotapi.BotAPI
	token      string
	registry   *session.Registry
	store      *database.Store
	oracle     conversation.Oracle
	analyzer   conversation.MistakeAnalyzer
	aggregator *review.Aggregator
	config     *BotConfig

	// process runs one update on a chat worker
	process func(ctx context.Context, update tgbotapi.Update)

	mu           sync.Mutex
	setupStates  map[int64]*setupState
	chatSessions map[int64]string
	chatQueues   map[int64]chan tgbotapi.Update
}

// New creates a new bot instance
func New(registry *session.Registry, store *database.Store, oracle conversation.Oracle, analyzer conversation.MistakeAnalyzer) (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	b := &Bot{
		token:        token,
		registry:     registry,
		store:        store,
		oracle:       oracle,
		analyzer:     analyzer,
		aggregator:   review.New(oracle, store),
		config:       DefaultConfig(),
		setupStates:  make(map[int64]*setupState),
		chatSessions: make(map[int64]string),
		chatQueues:   make(map[int64]chan tgbotapi.Update),
	}
	b.process = b.handleUpdate
	return b, nil
}

// Start connects to Telegram and handles updates until the context is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %v", err)
	}

	b.client = botAPI
	b.api = botAPI
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout

	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// Stop shuts down the update feed.
func (b *Bot) Stop() {
	if b.client != nil {
		b.client.StopReceivingUpdates()
	}
}

// dispatch hands an update to its chat's worker, starting one on first
// contact. The single update loop enqueues in arrival order and each
// worker drains its queue in order.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	b.mu.Lock()
	queue, ok := b.chatQueues[chatID]
	if !ok {
		queue = make(chan tgbotapi.Update, chatQueueSize)
		b.chatQueues[chatID] = queue
		go b.chatWorker(ctx, queue)
	}
	b.mu.Unlock()

	select {
	case queue <- update:
	case <-ctx.Done():
	}
}

func (b *Bot) chatWorker(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			b.process(ctx, update)
		}
	}
}

// updateChatID extracts the chat an update belongs to.
func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	case update.Message != nil:
		return update.Message.Chat.ID, true
	}
	return 0, false
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleText(ctx, update.Message)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

// sessionEngine returns the engine attached to a chat, if any.
func (b *Bot) sessionEngine(chatID int64) (*conversation.Engine, string, bool) {
	b.mu.Lock()
	token, ok := b.chatSessions[chatID]
	b.mu.Unlock()
	if !ok {
		return nil, "", false
	}

	engine, err := b.registry.Lookup(token)
	if err != nil {
		// Evicted by the idle sweeper since the last message
		b.mu.Lock()
		delete(b.chatSessions, chatID)
		b.mu.Unlock()
		return nil, "", false
	}
	return engine, token, true
}

func (b *Bot) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.config.RequestTimeout)
}
