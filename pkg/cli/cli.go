package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTickRate はシミュレーションの既定ティック数（毎秒）
const DefaultTickRate = 60

// DefaultEnvFile は既定で読み込む環境変数ファイル
const DefaultEnvFile = ".env"

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ScriptPath  string        // スクリプトファイルのパス（空ならデモプログラム）
	WorldPath   string        // ワールド定義ファイル（.yaml / .toml、空なら既定ワールド）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Headless    bool          // ヘッドレスモード
	Restart     bool          // 完了後にプログラムを再実行する
	TickRate    int           // 1秒あたりのティック数
	ConsoleCap  int           // コンソールのrune数上限（0は無制限）
	ConsoleAddr string        // コンソール配信のlistenアドレス（空なら無効）
	DisplayOut  string        // 終了時にディスプレイPNGを書き出すディレクトリ
	EnvFile     string        // 環境変数ファイル
	ShowHelp    bool          // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
	"-restart": true, "--restart": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
// 優先順位: コマンドラインフラグ > 環境変数 > 環境変数ファイル > 既定値
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("procscript", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.WorldPath, "world", "", "ワールド定義ファイル")
	fs.StringVar(&config.WorldPath, "w", "", "ワールド定義ファイル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.Restart, "restart", false, "完了後に再実行")
	fs.IntVar(&config.TickRate, "tick-rate", 0, "1秒あたりのティック数")
	fs.IntVar(&config.ConsoleCap, "console-cap", -1, "コンソールのrune数上限")
	fs.StringVar(&config.ConsoleAddr, "console-addr", "", "コンソール配信のlistenアドレス")
	fs.StringVar(&config.DisplayOut, "display-out", "", "ディスプレイPNGの出力先")
	fs.StringVar(&config.EnvFile, "env-file", "", "環境変数ファイル")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	env, err := loadEnv(config.EnvFile)
	if err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if v := env("HEADLESS"); v != "" {
			config.Headless = v == "1" || strings.ToLower(v) == "true"
		}
	}

	if timeoutSec == 0 {
		if v := env("TIMEOUT"); v != "" {
			if t, err := strconv.Atoi(v); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "info" {
		if v := env("LOG_LEVEL"); v != "" {
			config.LogLevel = strings.ToLower(v)
		}
	}

	if config.TickRate == 0 {
		config.TickRate = DefaultTickRate
		if v := env("TICK_RATE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid TICK_RATE %q: %w", v, err)
			}
			config.TickRate = n
		}
	}

	if config.ConsoleCap < 0 {
		config.ConsoleCap = 0
		if v := env("CONSOLE_CAP"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid CONSOLE_CAP %q: %w", v, err)
			}
			config.ConsoleCap = n
		}
	}

	if config.ConsoleAddr == "" {
		config.ConsoleAddr = env("CONSOLE_ADDR")
	}

	// 値の検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", config.TickRate)
	}
	if config.ConsoleCap < 0 {
		return nil, fmt.Errorf("console cap must be non-negative, got %d", config.ConsoleCap)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 位置引数（スクリプトファイル）
	if fs.NArg() > 0 {
		config.ScriptPath = fs.Arg(0)
	}

	return config, nil
}

// loadEnv 環境変数ファイルを読み、プロセスの環境変数を優先する参照関数を返す
// ファイルはプロセスの環境を書き換えない。既定の.envが無いのはエラーではない
func loadEnv(path string) (func(string) string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
		vars = nil
	}

	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return vars[key]
	}, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値を取るフラグは次の引数も移す
			if !strings.Contains(arg, "=") && !boolFlags[arg] &&
				i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `procscript - cooperative processor script runner

Usage:
  procscript [options] [script.js]

Arguments:
  script.js     実行するスクリプト（省略時はデモプログラム）

Options:
  -w, --world <file>          ワールド定義ファイル（.yaml / .yml / .toml）
  -t, --timeout <seconds>     指定秒数後に終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし）
  --restart                   完了したプログラムを再実行する
  --tick-rate <n>             1秒あたりのティック数（デフォルト: 60）
  --console-cap <runes>       コンソールの上限（デフォルト: 無制限）
  --console-addr <addr>       コンソールをWebSocketで配信（例: :8080）
  --display-out <dir>         終了時にディスプレイをPNGで書き出す
  --env-file <file>           環境変数ファイル（デフォルト: .env）
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  TICK_RATE=<n>               ティック数
  CONSOLE_CAP=<runes>         コンソールの上限
  CONSOLE_ADDR=<addr>         コンソール配信アドレス

Examples:
  procscript                               デモプログラムを実行
  procscript --world base.yaml miner.js    ワールドを指定して実行
  procscript --headless -t 10 miner.js     10秒間ヘッドレスで実行
  HEADLESS=1 procscript miner.js           環境変数でヘッドレスモード
`)
}
