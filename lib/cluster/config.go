package cluster

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/viper"
)

// nodeConfig is the per-node section of the cluster file:
//
//	["127.0.0.1:6379"]
//	position = [0, 8192]
type nodeConfig struct {
	Position []int64 `mapstructure:"position"`
}

// newConfigReader creates a viper instance that does not split keys on dots,
// since the top level keys of the cluster file are ip:port addresses.
// Viper lower-cases keys, NewSlotTable lower-cases the node's own address to match.
func newConfigReader() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter("/"))
}

// LoadSlotTable reads the cluster file at path (TOML unless the extension
// says otherwise) and creates the slot table for the node reachable at self.
func LoadSlotTable(path, self string) (*SlotTable, error) {
	v := newConfigReader()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read cluster file %s: %w", path, err)
	}

	table, err := slotTableFromViper(v, self)
	if err != nil {
		return nil, fmt.Errorf("invalid cluster file %s: %w", path, err)
	}
	Logger.Infof("loaded cluster file %s with %d nodes", path, len(table.nodes))
	return table, nil
}

// ParseSlotTable reads a TOML cluster configuration from r
func ParseSlotTable(r io.Reader, self string) (*SlotTable, error) {
	v := newConfigReader()
	v.SetConfigType("toml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse cluster configuration: %w", err)
	}
	return slotTableFromViper(v, self)
}

func slotTableFromViper(v *viper.Viper, self string) (*SlotTable, error) {
	var nodes map[string]nodeConfig
	if err := v.Unmarshal(&nodes); err != nil {
		return nil, err
	}

	ranges := make(map[string]SlotRange, len(nodes))
	for addr, node := range nodes {
		if len(node.Position) != 2 {
			return nil, fmt.Errorf("node %s: position must be [start, end], got %v", addr, node.Position)
		}
		start, end := node.Position[0], node.Position[1]
		if start < 0 || end < 0 || start > NumSlots || end > NumSlots {
			return nil, fmt.Errorf("node %s: position [%d, %d) is outside of [0, %d)", addr, start, end, NumSlots)
		}
		ranges[addr] = SlotRange{Start: uint16(start), End: uint16(end)}
	}

	return NewSlotTable(self, ranges)
}
