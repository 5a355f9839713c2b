package util

import "strings"

// DataType 代表 TYPE 命令返回的数据类型
type DataType string

const (
	// 基础类型
	TypeString DataType = "string"
	TypeList   DataType = "list"
	TypeHash   DataType = "hash"
	TypeSet    DataType = "set"
	TypeZSet   DataType = "zset"
	TypeStream DataType = "stream"

	// 模块类型
	TypeJSON       DataType = "ReJSON-RL"
	TypeGraph      DataType = "graphdata"
	TypeTimeSeries DataType = "TSDB-TYPE"

	// key 不存在时 TYPE 返回 none
	TypeNone DataType = "none"
)

// ParseDataType 解析用户输入的类型名，兼容常见别名
func ParseDataType(s string) (DataType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string":
		return TypeString, true
	case "list":
		return TypeList, true
	case "hash":
		return TypeHash, true
	case "set":
		return TypeSet, true
	case "zset", "sortedset", "sorted-set":
		return TypeZSet, true
	case "stream":
		return TypeStream, true
	case "rejson-rl", "json":
		return TypeJSON, true
	case "graphdata", "graph":
		return TypeGraph, true
	case "tsdb-type", "timeseries", "ts":
		return TypeTimeSeries, true
	}
	return "", false
}

// IsCollectionType 检查是否为集合类型（有元素个数概念）
func IsCollectionType(dt DataType) bool {
	switch dt {
	case TypeList, TypeHash, TypeSet, TypeZSet, TypeStream:
		return true
	}
	return false
}

// IsModuleType 检查是否为模块提供的类型
func IsModuleType(dt DataType) bool {
	switch dt {
	case TypeJSON, TypeGraph, TypeTimeSeries:
		return true
	}
	return false
}

// LengthCommand 获取类型对应的长度命令，空字符串表示该类型没有长度
func LengthCommand(dt DataType) string {
	switch dt {
	case TypeString:
		return "STRLEN"
	case TypeList:
		return "LLEN"
	case TypeHash:
		return "HLEN"
	case TypeSet:
		return "SCARD"
	case TypeZSet:
		return "ZCARD"
	case TypeStream:
		return "XLEN"
	case TypeJSON:
		return "JSON.OBJLEN"
	}
	return ""
}
