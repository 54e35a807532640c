package uuid

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	guuid "github.com/google/uuid"
)

// SnowNode 雪花id生成节点，日志条目等需要按时间有序的主键使用
type SnowNode struct {
	node *snowflake.Node
}

// NewNode nodeId 取值 0~1023，不同进程需不同
func NewNode(nodeId int64) *SnowNode {
	node, err := snowflake.NewNode(nodeId)
	if err != nil {
		panic(err)
	}
	return &SnowNode{node: node}
}

func (s *SnowNode) GenSnowID() int64 {
	return s.node.Generate().Int64()
}

func (s *SnowNode) GenSnowStr() string {
	return s.node.Generate().String()
}

// GenUUID 生成标准 uuid 字符串
func GenUUID() string {
	return guuid.NewString()
}

// GenUUID16 去掉横线后取前16位，用作 request id
func GenUUID16() string {
	return strings.ReplaceAll(guuid.NewString(), "-", "")[:16]
}
