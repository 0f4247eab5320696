// Package window はエンジンをティック単位で進めるホストループを提供する
//
// GUIモードではEbitengineのUpdateが1ティックごとにワールドを進めてから
// エンジンのStepを1回呼ぶ。ヘッドレスモードでは同じtickをタイマーで回す。
package window

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/procscript/pkg/logger"
)

// 画面サイズ
const (
	ScreenWidth  = 960
	ScreenHeight = 540
)

// コンソール表示の行数
const consoleLines = 34

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// 一時停止中のステータス色（黄色）
	pausedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// Stepper はティックごとに1区間だけスクリプトを進める
type Stepper interface {
	Step()
}

// Simulation はスクリプトが操作するワールド
type Simulation interface {
	Advance(n int)
	DisplayNames() []string
	DisplayImage(name string) (*image.RGBA, bool)
}

// ConsoleSource はコンソールの末尾を提供する
type ConsoleSource interface {
	Tail(n int) []string
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	stepper Stepper
	sim     Simulation
	console ConsoleSource
	log     *slog.Logger

	status   func() string // ステータス行
	done     func() bool   // ヘッドレス実行の終了判定
	onReload func() error  // Rキーで呼ばれる

	timeout   time.Duration
	startTime time.Time

	paused bool
	ticks  uint64

	display *ebiten.Image // ディスプレイ画像のキャッシュ

	mu sync.RWMutex
}

// Option はGameの設定
type Option func(*Game)

// WithConsole コンソール表示元を設定
func WithConsole(c ConsoleSource) Option {
	return func(g *Game) {
		g.console = c
	}
}

// WithStatus ステータス行の生成関数を設定
func WithStatus(fn func() string) Option {
	return func(g *Game) {
		g.status = fn
	}
}

// WithDone 終了判定を設定
func WithDone(fn func() bool) Option {
	return func(g *Game) {
		g.done = fn
	}
}

// WithReload リロード処理を設定
func WithReload(fn func() error) Option {
	return func(g *Game) {
		g.onReload = fn
	}
}

// WithTimeout タイムアウト時間を設定（0は無制限）
func WithTimeout(d time.Duration) Option {
	return func(g *Game) {
		g.timeout = d
	}
}

// WithLogger ロガーを設定
func WithLogger(log *slog.Logger) Option {
	return func(g *Game) {
		g.log = log
	}
}

// NewGame Gameを作成
func NewGame(stepper Stepper, sim Simulation, opts ...Option) *Game {
	g := &Game{
		stepper:   stepper,
		sim:       sim,
		log:       logger.GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// tick ワールドを1ティック進めてからスクリプトを1区間進める
func (g *Game) tick() {
	if g.sim != nil {
		g.sim.Advance(1)
	}
	if g.stepper != nil {
		g.stepper.Step()
	}
	g.mu.Lock()
	g.ticks++
	g.mu.Unlock()
}

// Ticks 実行済みのティック数
func (g *Game) Ticks() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ticks
}

// SetPaused 一時停止を切り替える
func (g *Game) SetPaused(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = paused
}

// Paused 一時停止中かどうか
func (g *Game) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

func (g *Game) timedOut() bool {
	return g.timeout > 0 && time.Since(g.startTime) >= g.timeout
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	if g.timedOut() {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.SetPaused(!g.Paused())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reload()
	}

	// 一時停止中はNキーで1ティックずつ進める
	if g.Paused() {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			g.tick()
		}
		return nil
	}

	g.tick()
	return nil
}

func (g *Game) reload() {
	if g.onReload == nil {
		return
	}
	if err := g.onReload(); err != nil {
		// コンパイルエラーはコンソールに出るのでここでは記録のみ
		g.log.Warn("Reload failed", "error", err)
	}
}

// Draw 画面描画
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	g.drawDisplay(screen)
	g.drawConsole(screen)
	g.drawStatus(screen)
}

// drawDisplay 最初のディスプレイを左側に拡大して描く
func (g *Game) drawDisplay(screen *ebiten.Image) {
	if g.sim == nil {
		return
	}
	names := g.sim.DisplayNames()
	if len(names) == 0 {
		return
	}
	img, ok := g.sim.DisplayImage(names[0])
	if !ok {
		return
	}

	size := img.Bounds().Size()
	if g.display == nil || g.display.Bounds().Size() != size {
		g.display = ebiten.NewImage(size.X, size.Y)
	}
	g.display.WritePixels(img.Pix)

	scale := displayScale(size.X)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(20, 40)
	screen.DrawImage(g.display, op)

	label := &text.DrawOptions{}
	label.GeoM.Translate(20, 20)
	label.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, names[0], defaultFace, label)
}

// displayScale ディスプレイ画像を左側の領域に収める倍率
func displayScale(size int) float64 {
	if size <= 0 {
		return 1
	}
	return float64(ScreenHeight-80) / float64(size)
}

// drawConsole コンソールの末尾を右側に描く
func (g *Game) drawConsole(screen *ebiten.Image) {
	if g.console == nil {
		return
	}
	x := float64(ScreenHeight - 20)
	for i, line := range g.console.Tail(consoleLines) {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x, 40+float64(i*14))
		op.ColorScale.ScaleWithColor(textColor)
		text.Draw(screen, line, defaultFace, op)
	}
}

func (g *Game) drawStatus(screen *ebiten.Image) {
	line := fmt.Sprintf("tick %d", g.Ticks())
	if g.status != nil {
		line += "  " + g.status()
	}
	col := color.Color(textColor)
	if g.Paused() {
		line += "  [paused: N step, SPACE resume]"
		col = pausedTextColor
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(20, ScreenHeight-20)
	op.ColorScale.ScaleWithColor(col)
	text.Draw(screen, line, defaultFace, op)
}

// Layout 論理画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// RunHeadless ウィンドウを開かずにtickRate毎秒でtickを回す
// doneが真になるか、タイムアウトかctxの終了で戻る
func RunHeadless(ctx context.Context, g *Game, tickRate int) error {
	if tickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", tickRate)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	for {
		if g.done != nil && g.done() {
			g.log.Info("Headless run finished", "ticks", g.Ticks())
			return nil
		}
		select {
		case <-ctx.Done():
			g.log.Info("Headless run stopped", "ticks", g.Ticks(), "reason", context.Cause(ctx))
			return nil
		case <-ticker.C:
			g.tick()
		}
	}
}

// Run GUIモードでウィンドウを実行
func Run(g *Game, tickRate int, title string) error {
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if tickRate > 0 {
		ebiten.SetTPS(tickRate)
	}

	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
