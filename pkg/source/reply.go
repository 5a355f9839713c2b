package source

import (
	"fmt"
	"strconv"
)

// ToInt64 将整数回复转换为 int64
func ToInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// ToUint64Ptr 非负整数回复转换为指针，其它情况返回 nil
func ToUint64Ptr(v interface{}) *uint64 {
	n, ok := ToInt64(v)
	if !ok || n < 0 {
		return nil
	}
	u := uint64(n)
	return &u
}

// ToString 将字符串回复转换为 string
func ToString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// ParseScanReply 解析 SCAN 回复: [cursor, [key...]]
func ParseScanReply(v interface{}) (uint64, []string, error) {
	parts, ok := v.([]interface{})
	if !ok || len(parts) != 2 {
		return 0, nil, fmt.Errorf("unexpected SCAN reply: %v", v)
	}

	cursorStr, ok := ToString(parts[0])
	if !ok {
		if n, isInt := ToInt64(parts[0]); isInt {
			cursorStr = strconv.FormatInt(n, 10)
		} else {
			return 0, nil, fmt.Errorf("unexpected SCAN cursor: %v", parts[0])
		}
	}
	cursor, err := strconv.ParseUint(cursorStr, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid SCAN cursor %q: %w", cursorStr, err)
	}

	rawKeys, ok := parts[1].([]interface{})
	if !ok {
		return 0, nil, fmt.Errorf("unexpected SCAN keys: %v", parts[1])
	}
	keys := make([]string, 0, len(rawKeys))
	for _, raw := range rawKeys {
		key, ok := ToString(raw)
		if !ok {
			return 0, nil, fmt.Errorf("unexpected SCAN key: %v", raw)
		}
		keys = append(keys, key)
	}
	return cursor, keys, nil
}
