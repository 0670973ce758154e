package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ngoclaw/chatpulse/internal/domain/valueobject"
	"github.com/ngoclaw/chatpulse/pkg/safego"
)

const (
	// captionLimit Telegram 图片说明长度上限
	captionLimit = 1024
	// handleTimeout 单条 update 的处理时限
	handleTimeout = 30 * time.Second
)

// Config Telegram 适配器配置
type Config struct {
	BotToken    string
	Debug       bool
	PollTimeout int  // 长轮询秒数
	SkipPending bool // 启动时丢弃离线期间积压的 update
	// 策略配置
	GroupPolicy    string   // open / allowlist / disabled
	GroupAllowFrom []string // 允许的群组 ID 列表
}

// botClient 是适配器用到的 BotAPI 子集, 便于测试替换
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// MessageTracker 记录入站消息, 由 usecase.TrackMessageUseCase 实现
type MessageTracker interface {
	Execute(ctx context.Context, ev valueobject.InboundEvent) (bool, error)
}

// OutgoingMessage 出站消息
type OutgoingMessage struct {
	ChatID    int64
	Text      string
	Markdown  bool   // Text 为 Markdown, 发送前转换为 Telegram HTML
	Photo     []byte // 非空时以图片 + 说明发送
	PhotoName string
	ReplyToID int
}

// Adapter Telegram 适配器
type Adapter struct {
	bot             botClient
	botName         string
	config          *Config
	logger          *zap.Logger
	tracker         MessageTracker
	commandRegistry *CommandRegistry
	panicHooks      []safego.PanicHook

	policyMu sync.RWMutex
	wg       sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAdapter 创建 Telegram 适配器
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.Debug = config.Debug

	logger.Info("Telegram bot authorized",
		zap.String("username", bot.Self.UserName),
	)

	return newAdapter(bot, bot.Self.UserName, config, logger), nil
}

func newAdapter(bot botClient, botName string, config *Config, logger *zap.Logger) *Adapter {
	return &Adapter{
		bot:     bot,
		botName: botName,
		config:  config,
		logger:  logger,
	}
}

// BotName 返回 bot 用户名
func (a *Adapter) BotName() string {
	return a.botName
}

// SetMessageTracker 设置消息记录器
func (a *Adapter) SetMessageTracker(tracker MessageTracker) {
	a.tracker = tracker
}

// SetCommandRegistry 设置命令注册表
func (a *Adapter) SetCommandRegistry(registry *CommandRegistry) {
	a.commandRegistry = registry
}

// SetPanicHooks 设置 panic 回调 (如指标计数)
func (a *Adapter) SetPanicHooks(hooks ...safego.PanicHook) {
	a.panicHooks = hooks
}

// Start 启动适配器 (轮询模式), 立即返回
func (a *Adapter) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.config.PollTimeout
	u.AllowedUpdates = []string{"message"}

	if a.config.SkipPending {
		offset, err := a.pendingOffset()
		if err != nil {
			return fmt.Errorf("skip pending updates: %w", err)
		}
		u.Offset = offset
	}

	// 设置 Bot 命令菜单
	if err := a.SetupBotCommands(); err != nil {
		a.logger.Warn("Failed to setup bot commands", zap.Error(err))
	}

	innerCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	updates := a.bot.GetUpdatesChan(u)

	a.logger.Info("Starting Telegram polling",
		zap.Int("offset", u.Offset),
		zap.String("group_policy", a.config.GroupPolicy),
	)

	go func() {
		defer close(a.done)
		for {
			select {
			case <-innerCtx.Done():
				a.bot.StopReceivingUpdates()
				a.logger.Info("Telegram adapter stopped")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				a.dispatch(innerCtx, update)
			}
		}
	}()

	return nil
}

// dispatch 每个 update 一个 goroutine, panic 不影响轮询
func (a *Adapter) dispatch(ctx context.Context, update tgbotapi.Update) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		safego.Run(a.logger, "telegram-update", func() {
			// 停止时让进行中的写入完成
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handleTimeout)
			defer cancel()
			a.handleUpdate(hctx, update)
		}, a.panicHooks...)
	}()
}

// pendingOffset returns the offset just past the newest queued update.
func (a *Adapter) pendingOffset() (int, error) {
	pending, err := a.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	last := pending[len(pending)-1].UpdateID
	a.logger.Info("Skipping pending updates", zap.Int("last_update_id", last))
	return last + 1, nil
}

// SetupBotCommands 设置 Bot 命令菜单
func (a *Adapter) SetupBotCommands() error {
	commands := []tgbotapi.BotCommand{
		{Command: "stats", Description: "📊 Activity leaderboard and busiest hours"},
		{Command: "help", Description: "❓ Help"},
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := a.bot.Request(config); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}

	a.logger.Info("Bot commands menu configured", zap.Int("count", len(commands)))
	return nil
}

// Stop 停止轮询并等待进行中的 update 处理完
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	a.wg.Wait()
}

// handleUpdate 处理更新
func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	// 检查群组策略
	isGroup := msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()
	if isGroup && !a.isAllowedGroup(msg.Chat.ID) {
		a.logger.Debug("Group not allowed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.String("title", msg.Chat.Title),
		)
		return
	}

	if a.tracker != nil {
		// 命令与无文本消息由过滤器静默丢弃; 写入失败已在用例层记录
		_, _ = a.tracker.Execute(ctx, valueobject.InboundEvent{
			AuthorID:     msg.From.ID,
			AuthorHandle: msg.From.UserName,
			ChatID:       msg.Chat.ID,
			Text:         msg.Text,
			ChatTitle:    msg.Chat.Title,
		})
	}

	cmd := ParseCommand(msg.Text)
	if cmd == nil || a.commandRegistry == nil || !addressedTo(msg.Text, a.botName) {
		return
	}
	cmd.ChatID = msg.Chat.ID
	cmd.ChatTitle = msg.Chat.Title

	response, handled, err := a.commandRegistry.Handle(ctx, cmd)
	if err != nil {
		a.logger.Error("Failed to handle command",
			zap.String("command", cmd.Name),
			zap.Error(err),
		)
		return
	}
	if !handled || response == nil {
		return
	}
	response.ReplyToID = msg.MessageID
	if err := a.SendMessage(response); err != nil {
		a.logger.Error("Failed to send reply",
			zap.String("command", cmd.Name),
			zap.Int64("chat_id", cmd.ChatID),
			zap.Error(err),
		)
	}
}

// SendMessage 发送消息; 带图片时以说明文字发送, HTML 被拒绝时退回纯文本
func (a *Adapter) SendMessage(out *OutgoingMessage) error {
	body, parseMode := out.Text, ""
	if out.Markdown {
		body, parseMode = MarkdownToTelegramHTML(out.Text), tgbotapi.ModeHTML
	}

	if len(out.Photo) > 0 {
		caption := body
		if utf8.RuneCountInString(caption) > captionLimit {
			caption = ""
		}
		if err := a.sendPhoto(out, caption, parseMode); err != nil {
			if parseMode == "" || caption == "" {
				return err
			}
			a.logger.Warn("HTML caption rejected, retrying as plain text", zap.Error(err))
			return a.sendPhoto(out, StripMarkdownForPlaintext(out.Text), "")
		}
		if caption != "" {
			return nil
		}
	}

	if err := a.sendText(out, body, parseMode); err != nil {
		if parseMode == "" {
			return err
		}
		a.logger.Warn("HTML message rejected, retrying as plain text", zap.Error(err))
		return a.sendText(out, StripMarkdownForPlaintext(out.Text), "")
	}
	return nil
}

func (a *Adapter) sendPhoto(out *OutgoingMessage, caption, parseMode string) error {
	name := out.PhotoName
	if name == "" {
		name = "chart.png"
	}
	photo := tgbotapi.NewPhoto(out.ChatID, tgbotapi.FileBytes{Name: name, Bytes: out.Photo})
	photo.Caption = caption
	photo.ParseMode = parseMode
	photo.ReplyToMessageID = out.ReplyToID
	_, err := a.bot.Send(photo)
	return err
}

// sendText 超长文本分块发送, 只有第一块回复原消息
func (a *Adapter) sendText(out *OutgoingMessage, text, parseMode string) error {
	for i, chunk := range ChunkMessage(text, TelegramMessageLimit) {
		msg := tgbotapi.NewMessage(out.ChatID, chunk)
		msg.ParseMode = parseMode
		if i == 0 {
			msg.ReplyToMessageID = out.ReplyToID
		}
		if _, err := a.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// UpdateGroupPolicy 热更新群组策略 (配置文件变更时调用)
func (a *Adapter) UpdateGroupPolicy(policy string, allowFrom []string) {
	a.policyMu.Lock()
	defer a.policyMu.Unlock()
	a.config.GroupPolicy = policy
	a.config.GroupAllowFrom = append([]string(nil), allowFrom...)
	a.logger.Info("Group policy updated",
		zap.String("group_policy", policy),
		zap.Int("allowlist_size", len(allowFrom)),
	)
}

// isAllowedGroup 检查群组是否被允许
func (a *Adapter) isAllowedGroup(chatID int64) bool {
	a.policyMu.RLock()
	defer a.policyMu.RUnlock()

	switch a.config.GroupPolicy {
	case "disabled":
		return false
	case "allowlist":
		return a.isInGroupAllowlist(chatID)
	default: // "open" 或空
		return true
	}
}

// isInGroupAllowlist 检查群组是否在白名单
func (a *Adapter) isInGroupAllowlist(chatID int64) bool {
	if len(a.config.GroupAllowFrom) == 0 {
		return true // 空白名单 = 允许所有
	}
	chatIDStr := fmt.Sprintf("%d", chatID)
	for _, id := range a.config.GroupAllowFrom {
		if id == chatIDStr {
			return true
		}
	}
	return false
}
