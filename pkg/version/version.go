package version

import "strings"

// 构建时通过 -ldflags "-X github.com/aitoooooo/redisx/pkg/version.Version=..." 注入
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func Info() string {
	return "redisx version " + Version + " (" + GitBranch + "/" + GitCommit + ") built at " + BuildTime
}

// ClientName 连接时通过 CLIENT SETNAME 上报的名称，不能包含空格
func ClientName() string {
	return "redisx-" + strings.Join(strings.Fields(Version), "_")
}
