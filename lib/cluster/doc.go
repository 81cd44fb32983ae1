// Package cluster implements the static hash slot layout of a vivs cluster.
//
// Every key hashes into one of NumSlots (16384) slots with CRC16/X25 modulo
// 16384. Each node is configured with a file mapping every node address to the
// half open slot range it owns:
//
//	["127.0.0.1:6379"]
//	position = [0, 8192]
//
//	["127.0.0.1:6380"]
//	position = [8192, 16384]
//
// The ranges have to cover the whole slot space without gaps or overlaps. The
// layout never changes while the process runs; there is no gossip and no live
// slot migration.
//
// A node that receives a request for a key it does not own never forwards it.
// It answers with an ASK redirect naming the slot and the owning address and
// the client resends the command there, preceded by ASKING.
package cluster
