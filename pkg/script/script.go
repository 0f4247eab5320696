// Package script はプロセッサスクリプトのソースファイルを読み込む
package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Extension はスクリプトファイルの拡張子
const Extension = ".js"

// Encoding は検出されたソースのエンコーディング
type Encoding string

const (
	EncodingUTF8     Encoding = "utf-8"
	EncodingUTF8BOM  Encoding = "utf-8-bom"
	EncodingUTF16LE  Encoding = "utf-16le"
	EncodingUTF16BE  Encoding = "utf-16be"
	EncodingShiftJIS Encoding = "shift_jis"
)

// Script はスクリプトファイルを表す
type Script struct {
	FileName string   // ファイル名
	Content  string   // UTF-8に変換された内容
	Size     int64    // ファイルサイズ
	Encoding Encoding // 元のエンコーディング
}

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	basePath string
}

// NewLoader Loaderを作成
func NewLoader(basePath string) *Loader {
	return &Loader{
		basePath: basePath,
	}
}

// BasePath 読み込み元のディレクトリを返す
func (l *Loader) BasePath() string {
	return l.basePath
}

// LoadAllScripts すべての.jsファイルをファイル名順に読み込む
func (l *Loader) LoadAllScripts() ([]Script, error) {
	scriptFiles, err := l.findScriptFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find script files: %w", err)
	}

	if len(scriptFiles) == 0 {
		return nil, fmt.Errorf("no script files found in %s", l.basePath)
	}

	var scripts []Script
	for _, filePath := range scriptFiles {
		s, err := LoadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load script %s: %w", filePath, err)
		}
		scripts = append(scripts, *s)
	}

	return scripts, nil
}

// findScriptFiles .jsファイルを検出（case-insensitive）
func (l *Loader) findScriptFiles() ([]string, error) {
	var scriptFiles []string

	err := filepath.Walk(l.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), Extension) {
			scriptFiles = append(scriptFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(scriptFiles)
	return scriptFiles, nil
}

// LoadFile 単一のスクリプトファイルを読み込み、UTF-8に変換する
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}

	return &Script{
		FileName: filepath.Base(path),
		Content:  content,
		Size:     int64(len(data)),
		Encoding: enc,
	}, nil
}

// Decode バイト列をUTF-8文字列に変換する
// BOMがあればそれに従い、なければUTF-8として妥当か確認し、
// 妥当でなければShift-JISとして扱う
func Decode(data []byte) (string, Encoding, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		s, err := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data)
		return s, EncodingUTF16LE, err
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		s, err := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), data)
		return s, EncodingUTF16BE, err
	case utf8.Valid(data):
		return string(data), EncodingUTF8, nil
	}

	s, err := decodeWith(japanese.ShiftJIS, data)
	return s, EncodingShiftJIS, err
}

func decodeWith(enc encoding.Encoding, data []byte) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %v: %w", enc, err)
	}
	return string(out), nil
}
