package frame

// ParserConfig holds the tunable knobs for LayerParser, following the
// teacher library's pattern of a small plain Config struct per decoder
// rather than constructor parameter lists.
type ParserConfig struct {
	// PaddingEnabled enables recognition of the 2-byte Padding (T1)
	// packet on halfword boundaries within a synchronized frame. When
	// false, 0xFF 0x7F sequences are treated as ordinary frame bytes.
	PaddingEnabled bool
}

// DefaultParserConfig matches the common case: padding recognition on.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{PaddingEnabled: true}
}
