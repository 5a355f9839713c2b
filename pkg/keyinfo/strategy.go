package keyinfo

import (
	"context"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/aitoooooo/redisx/pkg/util"
	"go.uber.org/zap"
)

// Strategy 获取某一类数据类型 key 的元数据
type Strategy interface {
	GetInfo(ctx context.Context, node source.Node, key string, knownType string) (*models.KeyDescriptor, error)
}

// TypeInfoStrategy 一次管道内执行 TTL、MEMORY USAGE 以及类型对应的长度命令
type TypeInfoStrategy struct {
	dataType      util.DataType
	lengthCommand string
	logger        *zap.Logger
}

// NewTypeInfoStrategy 创建类型策略，lengthCommand 为空表示该类型不取长度
func NewTypeInfoStrategy(dataType util.DataType, lengthCommand string, logger *zap.Logger) *TypeInfoStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeInfoStrategy{
		dataType:      dataType,
		lengthCommand: lengthCommand,
		logger:        logger.Named("keyinfo"),
	}
}

// NewUnsupportedTypeInfoStrategy 未知类型只取 TTL 与内存
func NewUnsupportedTypeInfoStrategy(logger *zap.Logger) *TypeInfoStrategy {
	return NewTypeInfoStrategy("", "", logger)
}

func (s *TypeInfoStrategy) GetInfo(ctx context.Context, node source.Node, key string, knownType string) (*models.KeyDescriptor, error) {
	s.logger.Debug("getting key info", zap.String("type", knownType), zap.String("node", node.Address()))

	// SAMPLES 0 表示对整个 value 做完整统计，而不是采样
	cmds := [][]interface{}{
		{"TTL", key},
		{"MEMORY", "USAGE", key, "SAMPLES", "0"},
	}
	if s.lengthCommand != "" {
		cmds = append(cmds, []interface{}{s.lengthCommand, key})
	}

	replies, err := node.ExecPipeline(ctx, cmds)
	if err != nil {
		return nil, err
	}
	if len(replies) > 2 && replies[2].Err != nil && util.IsModuleType(s.dataType) {
		// 模块未加载时长度命令不可用
		s.logger.Debug("module length command failed",
			zap.String("command", s.lengthCommand),
			zap.Error(replies[2].Err))
	}

	return describe(key, knownType, replies), nil
}

// describe 将管道回复组装为 KeyDescriptor，单条命令出错时对应字段视为缺失
// 只有 TTL 真正返回 -2 才认为 key 已消失，TTL 命令出错时 key 仍参与统计
func describe(key, knownType string, replies []source.Reply) *models.KeyDescriptor {
	desc := &models.KeyDescriptor{
		Name: key,
		Type: knownType,
		TTL:  -2,
	}

	if len(replies) > 0 && replies[0].Err == nil {
		if ttl, ok := source.ToInt64(replies[0].Value); ok {
			desc.TTL = ttl
			desc.Vanished = ttl == -2
		}
	}
	if len(replies) > 1 && replies[1].Err == nil {
		desc.Size = source.ToUint64Ptr(replies[1].Value)
	}
	// key 已经消失时长度命令会返回 0，不可信
	if len(replies) > 2 && replies[2].Err == nil && !desc.Vanished {
		desc.Length = source.ToUint64Ptr(replies[2].Value)
	}
	return desc
}
