// Package options 定义各组件配置的公共接口。
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join 用 "." 连接前缀并追加结尾的 "."，为空时返回空串。
// 例如 Join("nyx") 得到 "nyx."，用于拼出 "nyx.redis.addr" 这样的参数名。
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions 由每个配置段实现。
type IOptions interface {
	// Validate 返回全部校验错误，由调用方聚合。
	Validate() []error

	// AddFlags 以 prefixes 为前缀注册命令行参数。
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
