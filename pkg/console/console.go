// Package console はスクリプトとエンジンの診断出力を蓄積するバッファ
//
// 各行は "LOG: ", "WARN: ", "ERROR: " のいずれかのタグで始まる。
// 書き込みのたびに登録済みリスナーへバッファ全体が通知される。
package console

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/zurustar/procscript/pkg/logger"
)

// 行の先頭に付くタグ
const (
	TagLog   = "LOG: "
	TagWarn  = "WARN: "
	TagError = "ERROR: "
)

// Listener はバッファ全体を受け取る。Console への書き込みをしてはならない。
type Listener func(text string)

// Console は診断出力のバッファ
type Console struct {
	// notifyMu は書き込みと通知の順序を揃える
	notifyMu sync.Mutex
	mu       sync.Mutex

	// lines は "\n" 込みの行。先頭の行は容量超過で途中から欠けていることがある
	lines    []string
	runes    int
	capacity int
	listener Listener
	log      *slog.Logger
}

// Option は Console の設定
type Option func(*Console)

// WithCapacity 保持する文字数（rune数）の上限。0 は無制限。
// 上限を超えると古い文字から捨てる。
func WithCapacity(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithLogger ロガーを設定
func WithLogger(log *slog.Logger) Option {
	return func(c *Console) {
		c.log = log
	}
}

// WithListener リスナーを設定
func WithListener(fn Listener) Option {
	return func(c *Console) {
		c.listener = fn
	}
}

// New 空の Console を作成
func New(opts ...Option) *Console {
	c := &Console{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log は LOG タグ付きの行を追加する
func (c *Console) Log(text string) { c.append(TagLog, text) }

// Warn は WARN タグ付きの行を追加する
func (c *Console) Warn(text string) { c.append(TagWarn, text) }

// Error は ERROR タグ付きの行を追加する
func (c *Console) Error(text string) { c.append(TagError, text) }

// Clear はバッファを空にして通知する
func (c *Console) Clear() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.lines, c.runes = nil, 0
	listener := c.listener
	c.mu.Unlock()

	if listener != nil {
		listener("")
	}
}

// SetListener リスナーを差し替える。nil で解除。
func (c *Console) SetListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = fn
}

// Text バッファ全体を返す
func (c *Console) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "")
}

// Tail 末尾の n 行を返す
func (c *Console) Tail(n int) []string {
	lines := strings.Split(strings.TrimSuffix(c.Text(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if n >= 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Capacity rune数の上限（0 は無制限）
func (c *Console) Capacity() int {
	return c.capacity
}

func (c *Console) append(tag, text string) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	line := tag + text + "\n"
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.runes += utf8.RuneCountInString(line)
	c.trim()
	var snapshot string
	listener := c.listener
	if listener != nil {
		snapshot = strings.Join(c.lines, "")
	}
	c.mu.Unlock()

	c.log.Debug("Console line", "tag", strings.TrimSuffix(tag, ": "), "text", text)
	if listener != nil {
		listener(snapshot)
	}
}

// trim は容量を超えた分を先頭の行から捨てる。c.mu を保持して呼ぶこと
func (c *Console) trim() {
	if c.capacity <= 0 {
		return
	}
	for c.runes > c.capacity {
		first := c.lines[0]
		n := utf8.RuneCountInString(first)
		if c.runes-n >= c.capacity {
			c.lines[0] = ""
			c.lines = c.lines[1:]
			c.runes -= n
			continue
		}
		drop := c.runes - c.capacity
		for i := range first {
			if drop == 0 {
				c.lines[0] = first[i:]
				break
			}
			drop--
		}
		c.runes = c.capacity
	}
}
