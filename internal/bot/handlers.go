package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/tutorbot/internal/conversation"
	"github.com/example/tutorbot/pkg/models"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStartCommand(message)
	case "review":
		b.handleReviewCommand(ctx, message)
	case "stop":
		b.handleStopCommand(ctx, message)
	case "help":
		b.handleHelpCommand(message)
	default:
		b.send(message.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) handleStartCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	name := message.From.FirstName
	if name == "" {
		name = message.From.UserName
	}

	b.mu.Lock()
	b.setupStates[chatID] = &setupState{
		Stage:   stageNativeLanguage,
		Profile: models.Profile{UserName: name},
	}
	delete(b.chatSessions, chatID)
	b.mu.Unlock()

	b.send(chatID, fmt.Sprintf("Hi %s! Let's set up your practice session.\nWhat language do you speak natively?", name))
}

func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	b.send(message.Chat.ID, strings.Join([]string{
		"I'm a language tutor. Commands:",
		"/start - set up a new practice session",
		"/review - get a review of your mistakes so far",
		"/stop - end the current session",
		"Anything else you type is part of the conversation.",
	}, "\n"))
}

// handleText advances profile setup or relays a conversation turn.
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	b.mu.Lock()
	state, inSetup := b.setupStates[chatID]
	b.mu.Unlock()

	if inSetup {
		b.advanceSetup(ctx, chatID, state, message.Text)
		return
	}

	engine, _, ok := b.sessionEngine(chatID)
	if !ok {
		b.send(chatID, "No active session. Use /start to begin practicing.")
		return
	}

	reqCtx, cancel := b.requestContext(ctx)
	defer cancel()

	reply, mistakes, err := engine.SendMessage(reqCtx, message.Text)
	if err != nil {
		b.send(chatID, "I couldn't come up with a reply just now. Let's keep going - try sending that again.")
		return
	}

	b.send(chatID, reply)
	if len(mistakes) > 0 {
		b.send(chatID, formatMistakes(mistakes, b.config.MistakesPerReply))
	}
}

func (b *Bot) advanceSetup(ctx context.Context, chatID int64, state *setupState, text string) {
	// State writes stay under the mutex; sends happen after it is
	// released so a slow Telegram call never blocks other chats.
	b.mu.Lock()
	stage := state.Stage
	switch stage {
	case stageNativeLanguage:
		state.Profile.NativeLanguage = strings.TrimSpace(text)
		state.Stage = stageLearningLanguage
	case stageLearningLanguage:
		state.Profile.LearningLanguage = strings.TrimSpace(text)
		state.Stage = stageLevel
	}
	learningLanguage := state.Profile.LearningLanguage
	b.mu.Unlock()

	switch stage {
	case stageNativeLanguage:
		b.send(chatID, "Great. What language would you like to learn?")
	case stageLearningLanguage:
		b.sendWithKeyboard(chatID, fmt.Sprintf("What's your current level in %s?", learningLanguage), createKeyboard([][]MenuButton{
			{{Text: "Beginner", CallbackData: "level:" + models.LevelBeginner}},
			{{Text: "Intermediate", CallbackData: "level:" + models.LevelIntermediate}},
			{{Text: "Advanced", CallbackData: "level:" + models.LevelAdvanced}},
		}))
	default:
		// Level and scenario are picked via inline keyboards
		b.send(chatID, "Please pick one of the options above.")
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Acknowledge so the client stops the spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Error acknowledging callback: %v", err)
	}

	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.mu.Lock()
	state, inSetup := b.setupStates[chatID]
	b.mu.Unlock()
	if !inSetup {
		return
	}

	switch {
	case strings.HasPrefix(data, "level:"):
		b.mu.Lock()
		state.Profile.ProficiencyLevel = strings.TrimPrefix(data, "level:")
		state.Stage = stageScenario
		b.mu.Unlock()

		var rows [][]MenuButton
		for i, scenario := range models.Scenarios {
			rows = append(rows, []MenuButton{{Text: scenario, CallbackData: fmt.Sprintf("scenario:%d", i)}})
		}
		b.sendWithKeyboard(chatID, "Pick a scene for your conversation:", createKeyboard(rows))
	case strings.HasPrefix(data, "scenario:"):
		var idx int
		if _, err := fmt.Sscanf(data, "scenario:%d", &idx); err != nil || idx < 0 || idx >= len(models.Scenarios) {
			b.send(chatID, "Please pick one of the offered scenes.")
			return
		}
		b.mu.Lock()
		state.Profile.Scenario = models.Scenarios[idx]
		profile := state.Profile
		b.mu.Unlock()
		b.startSession(ctx, chatID, profile)
	}
}

func (b *Bot) startSession(ctx context.Context, chatID int64, profile models.Profile) {
	engine := conversation.NewEngine(b.oracle, b.analyzer, b.store, profile)

	reqCtx, cancel := b.requestContext(ctx)
	defer cancel()

	welcome, err := engine.Start(reqCtx)
	if err != nil {
		log.Printf("Error starting session for chat %d: %v", chatID, err)
		b.send(chatID, "Something went wrong starting the session. Try /start again.")
		return
	}

	token := b.registry.Add(engine)

	b.mu.Lock()
	delete(b.setupStates, chatID)
	b.chatSessions[chatID] = token
	b.mu.Unlock()

	b.send(chatID, welcome)
}

func (b *Bot) handleReviewCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	engine, _, ok := b.sessionEngine(chatID)
	if !ok {
		b.send(chatID, "No active session. Use /start to begin practicing.")
		return
	}

	reqCtx, cancel := b.requestContext(ctx)
	defer cancel()

	result, err := b.aggregator.BuildReview(reqCtx, engine)
	if err != nil {
		b.send(chatID, "I couldn't put the review together right now, please try again.")
		return
	}

	b.send(chatID, formatReview(result))
}

func (b *Bot) handleStopCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	engine, token, ok := b.sessionEngine(chatID)
	if ok {
		if err := engine.Close(ctx); err != nil {
			log.Printf("Warning: failed to close session row: %v", err)
		}
		b.registry.Remove(token)
		b.mu.Lock()
		delete(b.chatSessions, chatID)
		b.mu.Unlock()
	}

	// Ending without a session is fine
	b.send(chatID, "Session ended. Use /start whenever you want to practice again!")
}

func formatMistakes(mistakes []models.Mistake, limit int) string {
	var sb strings.Builder
	sb.WriteString("A few corrections:\n")
	for i, m := range mistakes {
		if i >= limit {
			fmt.Fprintf(&sb, "...and %d more. Use /review for the full list.\n", len(mistakes)-limit)
			break
		}
		fmt.Fprintf(&sb, "%d. %q -> %q\n   %s\n", i+1, m.Mistake, m.Correction, m.Explanation)
	}
	return sb.String()
}

func formatReview(r *models.Review) string {
	if r.NoMistakes {
		return r.Message
	}

	var sb strings.Builder
	sb.WriteString("Session review:\n")
	for _, c := range r.Categories {
		fmt.Fprintf(&sb, "- %s: %d mistake(s)\n", c.Category, c.Count)
	}
	if r.Suggestions != "" {
		sb.WriteString("\n")
		sb.WriteString(r.Suggestions)
	}
	return sb.String()
}
