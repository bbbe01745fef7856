// Package wire implements the ZBXD passive-protocol codec: the framed
// dialect (fixed 13-byte header) and the line dialect (newline-terminated,
// bounded read), and the framed encoder used to answer both.
package wire

// Header is the fixed 5-byte prefix of the framed dialect: "ZBXD" followed
// by protocol version 1.
var Header = [5]byte{'Z', 'B', 'X', 'D', 0x01}

const (
	// HeaderLength is len(Header).
	HeaderLength = 5

	// LengthFieldSize is the width, in bytes, of the little-endian payload
	// length that follows Header.
	LengthFieldSize = 8

	// FrameDescriptorSize is HeaderLength + LengthFieldSize: the number of
	// bytes preceding the payload in the framed dialect.
	FrameDescriptorSize = HeaderLength + LengthFieldSize

	// LineDialectMaxKeyBytes bounds a line-dialect key: the protocol codec
	// never keeps reading past this many bytes without finding '\n'.
	LineDialectMaxKeyBytes = 65536

	// NotSupported is the sentinel string the dispatcher returns for every
	// error it contains.
	NotSupported = "ZBX_NOTSUPPORTED"
)
