package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"

	"github.com/zurustar/procscript/pkg/cli"
	"github.com/zurustar/procscript/pkg/engine"
	"github.com/zurustar/procscript/pkg/logger"
	"github.com/zurustar/procscript/pkg/remote"
	"github.com/zurustar/procscript/pkg/script"
	"github.com/zurustar/procscript/pkg/window"
	"github.com/zurustar/procscript/pkg/world"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config   *cli.Config
	log      *slog.Logger
	programs fs.FS // 組み込みのサンプルプログラム

	world  *world.World
	engine *engine.Engine
	hub    *remote.Hub

	finalState engine.State // 実行終了時のセッション状態
}

// New Applicationを作成
// programsはスクリプトがディスク上に無いときの検索先（nil可）
func New(programs fs.FS) *Application {
	return &Application{
		programs: programs,
	}
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 3. ワールドの構築
	if err := app.loadWorld(); err != nil {
		return fmt.Errorf("failed to load world: %w", err)
	}

	// 4. スクリプトの読み込み
	src, err := app.loadProgram()
	if err != nil {
		return fmt.Errorf("failed to load script: %w", err)
	}

	// 5. エンジンの起動
	app.startEngine(ctx)
	defer app.engine.Close()

	if err := app.engine.Load(src); err != nil {
		// GUIではRキーで再読み込みできるので続行する
		if app.config.Headless {
			return fmt.Errorf("failed to compile script: %w", err)
		}
		app.log.Warn("Script did not compile", "error", err)
	}

	// 6. 実行
	if err := app.run(ctx); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}
	app.finalState = app.engine.State()

	// 7. ディスプレイの書き出し
	if err := app.writeDisplays(); err != nil {
		return fmt.Errorf("failed to write displays: %w", err)
	}

	app.log.Info("Application terminated normally",
		"state", app.finalState,
		"yields", app.engine.Yields(),
		"ticks", app.world.Tick())
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = config
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// loadWorld ワールド定義を読み込む（未指定なら既定ワールド）
func (app *Application) loadWorld() error {
	def := world.Default()
	if app.config.WorldPath != "" {
		var err error
		def, err = world.LoadFile(app.config.WorldPath)
		if err != nil {
			return err
		}
	}

	w, err := world.New(def, world.WithLogger(logger.Component("world")))
	if err != nil {
		return err
	}
	app.world = w
	app.log.Info("World ready", "path", app.config.WorldPath, "displays", w.DisplayNames())
	return nil
}

// loadProgram スクリプトを読み込む
// ディスクに無ければ組み込みプログラムを探す。未指定なら空文字列（デモプログラム）
func (app *Application) loadProgram() (string, error) {
	p := app.config.ScriptPath
	if p == "" {
		app.log.Info("No script given, running the demo program")
		return "", nil
	}

	s, err := script.LoadFile(p)
	if err == nil {
		app.log.Info("Script loaded", "name", s.FileName, "size", s.Size, "encoding", s.Encoding)
		return s.Content, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || app.programs == nil {
		return "", err
	}

	data, ferr := fs.ReadFile(app.programs, path.Join("programs", filepath.ToSlash(p)))
	if ferr != nil {
		return "", err
	}
	content, enc, err := script.Decode(data)
	if err != nil {
		return "", err
	}
	app.log.Info("Built-in program loaded", "name", p, "encoding", enc)
	return content, nil
}

// startEngine エンジンとコンソール配信を構築する
func (app *Application) startEngine(ctx context.Context) {
	app.engine = engine.New(app.world,
		engine.WithLogger(logger.Component("engine")),
		engine.WithConsoleCapacity(app.config.ConsoleCap),
		engine.WithRestart(app.config.Restart),
	)

	if app.config.ConsoleAddr == "" {
		return
	}
	app.hub = remote.NewHub()
	app.engine.SetConsoleListener(app.hub.Publish)
	go func() {
		if err := remote.ListenAndServe(ctx, app.config.ConsoleAddr, app.hub); err != nil {
			app.log.Error("Console server stopped", "error", err)
		}
	}()
}

// reload スクリプトを読み直して新しいセッションを開始する
func (app *Application) reload() error {
	src, err := app.loadProgram()
	if err != nil {
		return err
	}
	app.log.Info("Reloading script")
	return app.engine.Load(src)
}

// done 再実行しない場合、完了かエラーで終了とみなす
func (app *Application) done() bool {
	if app.config.Restart {
		return false
	}
	switch app.engine.State() {
	case engine.StateFinished, engine.StateErrored:
		return true
	}
	return false
}

func (app *Application) status() string {
	return fmt.Sprintf("%s  yields %d  @counter %v",
		app.engine.State(), app.engine.Yields(), app.engine.Registers().Counter)
}

// run ヘッドレスまたはGUIでティックを回す
func (app *Application) run(ctx context.Context) error {
	game := window.NewGame(app.engine, app.world,
		window.WithConsole(app.engine.Console()),
		window.WithStatus(app.status),
		window.WithDone(app.done),
		window.WithReload(app.reload),
		window.WithTimeout(app.config.Timeout),
		window.WithLogger(logger.Component("window")),
	)

	if app.config.Headless {
		app.log.Info("Running headless", "tick_rate", app.config.TickRate, "timeout", app.config.Timeout)
		err := window.RunHeadless(ctx, game, app.config.TickRate)
		if err == nil && app.engine.State() == engine.StateErrored {
			// エラー内容はコンソールに出ている
			fmt.Fprint(os.Stderr, app.engine.Console().Text())
		}
		return err
	}

	app.log.Info("Starting window", "tick_rate", app.config.TickRate)
	return window.Run(game, app.config.TickRate, "procscript")
}

// writeDisplays 全ディスプレイをPNGとして書き出す
func (app *Application) writeDisplays() error {
	dir := app.config.DisplayOut
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, name := range app.world.DisplayNames() {
		out := filepath.Join(dir, name+".png")
		if err := writeDisplay(app.world, name, out); err != nil {
			return err
		}
		app.log.Info("Display written", "name", name, "path", out)
	}
	return nil
}

func writeDisplay(w *world.World, name, out string) (err error) {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return w.WriteDisplayPNG(name, f)
}
