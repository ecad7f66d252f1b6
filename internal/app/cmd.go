package app

// Command はサブコマンド名。
type Command string

const (
	CommandServe       Command = "serve"       // 認証APIサーバー（既定）
	CommandWorker      Command = "worker"      // 失効セッションの定期削除
	CommandMigrate     Command = "migrate"     // スキーマの適用
	CommandHealthcheck Command = "healthcheck" // distrolessイメージ用のヘルスチェック
)

var knownCommands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数からサブコマンドを決める。
// 引数なし、または未知の名前はCommandServeとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := knownCommands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
