package app

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除ワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed は既定タグを投入することを示す。
	CommandSeed Command = "seed"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// Options はサブコマンドのフラグを保持する。
type Options struct {
	Command Command

	// migrate
	Down   bool // すべてのマイグレーションを取り消す
	NoSeed bool // 適用後の既定タグ投入を行わない

	// seed
	SeedFile string // 空の場合は組み込みの既定タグ
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "seed":
		return CommandSeed
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// ParseOptions はサブコマンドとそのフラグを解析する。
// 未知のフラグはエラーとし、使い方をstderrに出力する。
func ParseOptions(args []string, stderr io.Writer) (*Options, error) {
	opts := &Options{Command: ParseCommand(args)}

	var rest []string
	if len(args) > 0 && Command(args[0]) == opts.Command {
		rest = args[1:]
	}

	fs := pflag.NewFlagSet(string(opts.Command), pflag.ContinueOnError)
	fs.SetOutput(stderr)

	switch opts.Command {
	case CommandMigrate:
		fs.BoolVar(&opts.Down, "down", false, "roll back all migrations")
		fs.BoolVar(&opts.NoSeed, "no-seed", false, "skip seeding default tags after migrating")
	case CommandSeed:
		fs.StringVarP(&opts.SeedFile, "file", "f", "", "YAML file with tags to seed (defaults to the built-in set)")
	}

	if err := fs.Parse(rest); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", opts.Command, err)
	}

	return opts, nil
}
