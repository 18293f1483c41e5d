// Package index maintains the in-memory, JSON-snapshotted index of
// PacketDescriptors described in spec §3 and §4.2.
package index

// CommandType is the 8-bit protocol opcode extracted from a packet header.
type CommandType uint8

// Recognised command-type codes (§6). Any other value is accepted and
// reported by CommandType.String as "unknown".
const (
	CommandDefault       CommandType = 0x00
	CommandLineData      CommandType = 0x11
	CommandBTAFlag       CommandType = 0x22
	CommandULPSFlag      CommandType = 0x33
	CommandVideoPreview  CommandType = 0x44
	CommandDuplicate     CommandType = 0x55
	CommandLineDirective CommandType = 0x66
	CommandFrameStart    CommandType = 0x77
	CommandMonitor       CommandType = 0x88

	// CommandUnknown is the sentinel a legacy (pre-2.1) snapshot entry is
	// loaded with in place of a real command code, distinct from
	// CommandDefault's genuine 0x00 so a legacy-defaulted row is never
	// confused with an actual default/passthrough packet (spec.md:179).
	CommandUnknown CommandType = 0xFF
)

func (c CommandType) String() string {
	switch c {
	case CommandDefault:
		return "default/passthrough"
	case CommandLineData:
		return "cmd-line command data"
	case CommandBTAFlag:
		return "cmd-line BTA flag"
	case CommandULPSFlag:
		return "cmd-line ULPS flag"
	case CommandVideoPreview:
		return "video preview line"
	case CommandDuplicate:
		return "duplicate-marked line"
	case CommandLineDirective:
		return "command-line directive"
	case CommandFrameStart:
		return "frame-start marker"
	case CommandMonitor:
		return "monitor device"
	default:
		return "unknown"
	}
}

// VariantKind discriminates the union stored in a Variant.
type VariantKind uint8

const (
	VariantNone VariantKind = iota
	VariantInt
	VariantReal
	VariantIntList
	VariantStr
)

// Variant is the tagged union a feature value is carried in (§4.4). Only one
// of the typed fields is meaningful, selected by Kind; this mirrors the
// dynamically-typed feature maps of the source without resorting to
// interface{} everywhere a feature is read.
type Variant struct {
	Kind    VariantKind
	Int     int64
	Real    float64
	IntList []int64
	Str     string
}

func IntVariant(v int64) Variant      { return Variant{Kind: VariantInt, Int: v} }
func RealVariant(v float64) Variant   { return Variant{Kind: VariantReal, Real: v} }
func IntListVariant(v []int64) Variant { return Variant{Kind: VariantIntList, IntList: v} }
func StrVariant(v string) Variant     { return Variant{Kind: VariantStr, Str: v} }

// AsFloat coerces a Variant to a float64 for filter comparisons, returning
// false for kinds that carry no numeric value.
func (v Variant) AsFloat() (float64, bool) {
	switch v.Kind {
	case VariantInt:
		return float64(v.Int), true
	case VariantReal:
		return v.Real, true
	default:
		return 0, false
	}
}

// PacketDescriptor is the index record (§3). Descriptors are by-value copies
// once handed to a caller; IndexStore never mutates one in place except to
// add a new feature key.
type PacketDescriptor struct {
	TimestampNs uint64
	FilePath    string
	FileOffset  uint64
	Size        uint32
	BatchID     uint32
	PacketIndex uint32
	CommandType CommandType
	Sequence    uint32
	ValidHeader bool
	Features    map[string]Variant
}

// WithFeature returns a copy of d with feature name set to v. Existing keys
// are never rewritten (§3 Lifecycles); a name already present is left alone.
func (d PacketDescriptor) WithFeature(name string, v Variant) PacketDescriptor {
	if _, exists := d.Features[name]; exists {
		return d
	}
	out := make(map[string]Variant, len(d.Features)+1)
	for k, val := range d.Features {
		out[k] = val
	}
	out[name] = v
	d.Features = out
	return d
}
