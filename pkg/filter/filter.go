package filter

import (
	"fmt"
	"strings"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/util"
)

const (
	DefaultMatch     = "*"
	DefaultCount     = 1000
	DefaultKeysLimit = 10000
)

// Normalize 填充默认值，不修改入参
func Normalize(f models.ScanFilter) models.ScanFilter {
	if strings.TrimSpace(f.Match) == "" {
		f.Match = DefaultMatch
	}
	if f.Count <= 0 {
		f.Count = DefaultCount
	}
	if f.KeysLimit < 0 {
		f.KeysLimit = 0
	}
	if f.Type != "" {
		if dt, ok := util.ParseDataType(f.Type); ok {
			f.Type = string(dt)
		}
	}
	return f
}

// Validate 校验过滤条件
func Validate(f models.ScanFilter) error {
	if f.Count <= 0 {
		return fmt.Errorf("invalid count: %d, must be positive", f.Count)
	}
	if f.KeysLimit < 0 {
		return fmt.Errorf("invalid keys limit: %d", f.KeysLimit)
	}
	if f.Type != "" {
		if _, ok := util.ParseDataType(f.Type); !ok {
			return fmt.Errorf("unsupported type filter: %s", f.Type)
		}
	}
	return nil
}

// ScanArgs 构造 SCAN 命令参数
func ScanArgs(cursor uint64, f models.ScanFilter) []interface{} {
	args := []interface{}{"SCAN", cursor, "MATCH", f.Match, "COUNT", f.Count}
	if f.Type != "" {
		args = append(args, "TYPE", f.Type)
	}
	return args
}

// ExactKey 模式不含通配符时返回字面 key
func ExactKey(f models.ScanFilter) (string, bool) {
	if util.IsGlob(f.Match) {
		return "", false
	}
	return util.Unescape(f.Match), true
}

// Remaining 计算本节点剩余的 key 配额，limit 为 0 表示不限制
func Remaining(limit, scanned int64) (int64, bool) {
	if limit <= 0 {
		return -1, true
	}
	left := limit - scanned
	return left, left > 0
}
