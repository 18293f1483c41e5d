package index

import "github.com/fx3stream/capture-index/query"

// Access is the polymorphic index-backend capability set from spec Design
// Notes §9 (the source's IIndexAccess): find_closest/range/query/
// find_by_command/all/count, abstracted so callers (PacketReader, Core,
// tests) can be handed a test double instead of a live *Store.
type Access interface {
	FindClosest(ts uint64) (PacketDescriptor, bool)
	Range(tsLo, tsHi uint64) []PacketDescriptor
	Query(q query.Query) []PacketDescriptor
	FindByCommand(cmd CommandType, limit int) []PacketDescriptor
	All() []PacketDescriptor
	Count() int
}

var _ Access = (*Store)(nil)
