package telegram

import (
	"strings"
	"unicode/utf8"
)

// TelegramMessageLimit Telegram 消息长度限制 (字符)
const TelegramMessageLimit = 4096

// ChunkMessage 按 limit 个字符分块, 尽量在段落/换行/空格处切分
func ChunkMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = TelegramMessageLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for remaining != "" {
		if utf8.RuneCountInString(remaining) <= limit {
			chunks = append(chunks, remaining)
			break
		}

		head := prefixRunes(remaining, limit)
		split := findSplitPoint(head)
		chunks = append(chunks, strings.TrimRight(head[:split], " \n"))
		remaining = strings.TrimLeft(remaining[split:], " \t\r\n")
	}
	return chunks
}

// findSplitPoint 寻找分割点 (字节下标)
// 优先级: 双换行 > 单换行 > 空格 > 强制截断
func findSplitPoint(head string) int {
	if idx := strings.LastIndex(head, "\n\n"); idx >= len(head)/2 {
		return idx
	}
	if idx := strings.LastIndex(head, "\n"); idx >= len(head)/2 {
		return idx
	}
	if idx := strings.LastIndex(head, " "); idx >= len(head)/3 {
		return idx
	}
	return len(head)
}

// prefixRunes 取前 n 个字符, 不会切断多字节字符
func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
