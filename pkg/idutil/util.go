package idutil

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// SetNode configures the snowflake node of this process. It must be called
// before the first NextID if the process runs beside other instances.
func SetNode(n int64) error {
	sn, err := snowflake.NewNode(n)
	if err != nil {
		return err
	}

	node = sn
	return nil
}

// NextID returns a unique, time ordered id.
func NextID() int64 {
	nodeOnce.Do(func() {
		if node == nil {
			node, _ = snowflake.NewNode(0)
		}
	})

	return node.Generate().Int64()
}
