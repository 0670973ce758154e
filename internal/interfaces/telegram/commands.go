package telegram

import (
	"context"
	"strings"
	"sync"
)

// Command Telegram 命令
type Command struct {
	Name      string   // 命令名 (不含 /)
	Args      []string // 参数列表
	ChatID    int64
	ChatTitle string
}

// CommandHandler 命令处理器
type CommandHandler func(ctx context.Context, cmd *Command) (*OutgoingMessage, error)

// CommandRegistry 命令注册表
type CommandRegistry struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandler
	aliases  map[string]string
}

// NewCommandRegistry 创建命令注册表
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
		aliases:  make(map[string]string),
	}
}

// Register 注册命令
func (r *CommandRegistry) Register(name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(name)] = handler
}

// Alias 注册命令别名
func (r *CommandRegistry) Alias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[strings.ToLower(alias)] = strings.ToLower(target)
}

// Handle 处理命令, 未注册的命令返回 handled=false
func (r *CommandRegistry) Handle(ctx context.Context, cmd *Command) (*OutgoingMessage, bool, error) {
	r.mu.RLock()
	name := strings.ToLower(cmd.Name)
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	handler, exists := r.handlers[name]
	r.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	response, err := handler(ctx, cmd)
	return response, true, err
}

// ParseCommand 解析命令, 非命令返回 nil
func ParseCommand(text string) *Command {
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	// 移除 @ 后缀 (群组中的 /cmd@botname)
	parts := strings.SplitN(text[1:], " ", 2)
	cmdPart := parts[0]
	if idx := strings.Index(cmdPart, "@"); idx != -1 {
		cmdPart = cmdPart[:idx]
	}

	cmd := &Command{
		Name: cmdPart,
	}

	if len(parts) > 1 {
		cmd.Args = strings.Fields(parts[1])
	}

	return cmd
}

// addressedTo reports whether a /cmd@botname command targets this bot.
// Commands without a suffix target every bot in the chat.
func addressedTo(text, botName string) bool {
	first := strings.SplitN(text, " ", 2)[0]
	idx := strings.Index(first, "@")
	if idx == -1 || botName == "" {
		return true
	}
	return strings.EqualFold(first[idx+1:], botName)
}
