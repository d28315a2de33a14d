package app

// Command はneocalバイナリのサブコマンド。
type Command string

const (
	// CommandServe はHTTP APIを起動する（デフォルト）。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除だけを行うプロセスを起動する。
	CommandWorker Command = "worker"
	// CommandMigrate は埋め込みマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のAPIの/healthを叩いて終了コードで結果を返す。
	// シェルの無いdistrolessイメージのHEALTHCHECKで使う。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand はos.Args[1:]の先頭要素をサブコマンドとして解釈する。
// 2つ目以降の引数は見ない。未指定や未知の値はserveになる。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
