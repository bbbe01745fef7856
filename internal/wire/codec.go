package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/blin/zabby-agent/internal/errors"
)

// DecodeKey reads one raw key from r, detecting the framed or line dialect
// from the first bytes on the wire. It reads up to HeaderLength bytes for
// the dialect probe rather than blocking for exactly HeaderLength: a line-
// dialect client may send a short key (plus '\n') in one small burst and
// then wait for the response without writing more. It never reads past the
// declared length in framed mode, and never past LineDialectMaxKeyBytes in
// line mode.
func DecodeKey(r io.Reader) (string, error) {
	var probe [HeaderLength]byte
	n, err := r.Read(probe[:])
	if n == 0 && err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", &errors.ProtocolError{
			Operation: "read dialect probe",
			Message:   "truncated stream",
			Err:       err,
		}
	}

	if n == HeaderLength && probe == Header {
		return decodeFramed(r)
	}

	return decodeLine(r, probe[:n])
}

func decodeFramed(r io.Reader) (string, error) {
	lenBuf := make([]byte, LengthFieldSize)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return "", &errors.ProtocolError{
			Operation: "read length header",
			Message:   "truncated stream",
			Err:       err,
		}
	}
	length := binary.LittleEndian.Uint64(lenBuf)

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", &errors.ProtocolError{
			Operation: "read payload",
			Message:   fmt.Sprintf("truncated stream: expected %d bytes", length),
			Err:       err,
		}
	}

	if !utf8.Valid(payload) {
		return "", &errors.ProtocolError{
			Operation: "decode payload",
			Message:   "payload is not valid UTF-8",
		}
	}

	return string(payload), nil
}

// decodeLine implements the line dialect: already has the contents of
// probe (bytes consumed while checking for the framed header); reads
// further bytes, if needed, until it sees '\n' or hits the byte cap.
func decodeLine(r io.Reader, probe []byte) (string, error) {
	bufPtr := getReceiveBuffer()
	defer putReceiveBuffer(bufPtr)

	acc := make([]byte, 0, len(probe)+64)
	acc = append(acc, probe...)

	if idx := indexByte(acc, '\n'); idx >= 0 {
		return finishLine(acc[:idx])
	}

	chunk := *bufPtr
	for len(acc) < LineDialectMaxKeyBytes {
		n, err := r.Read(chunk[:min(len(chunk), LineDialectMaxKeyBytes-len(acc))])
		if n > 0 {
			acc = append(acc, chunk[:n]...)
			if idx := indexByte(acc, '\n'); idx >= 0 {
				return finishLine(acc[:idx])
			}
		}
		if err != nil {
			if err == io.EOF {
				return "", &errors.ProtocolError{
					Operation: "read line",
					Message:   "connection closed before newline",
					Err:       err,
				}
			}
			return "", &errors.ProtocolError{
				Operation: "read line",
				Message:   "truncated stream",
				Err:       err,
			}
		}
	}

	return "", &errors.ProtocolError{
		Operation: "read line",
		Message:   fmt.Sprintf("key exceeds %d bytes with no newline", LineDialectMaxKeyBytes),
	}
}

func finishLine(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", &errors.ProtocolError{
			Operation: "decode line",
			Message:   "payload is not valid UTF-8",
		}
	}
	return string(b), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// EncodeValue writes value, framed per the ZBXD header, to w. Partial
// writes are retried until the full message is delivered or the
// connection fails, mirroring a sendall-equivalent.
func EncodeValue(w io.Writer, value interface{}) error {
	payload, err := FormatValue(value)
	if err != nil {
		return err
	}

	frame := make([]byte, FrameDescriptorSize+len(payload))
	copy(frame[0:HeaderLength], Header[:])
	binary.LittleEndian.PutUint64(frame[HeaderLength:FrameDescriptorSize], uint64(len(payload)))
	copy(frame[FrameDescriptorSize:], payload)

	return writeAll(w, frame)
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return &errors.ProtocolError{
				Operation: "write frame",
				Message:   "send failed before completion",
				Err:       err,
			}
		}
		buf = buf[n:]
	}
	return nil
}

// FormatValue serializes a response value the way the wire expects:
// integers in decimal, floats fixed-point with exactly four fractional
// digits (never scientific notation), strings unchanged.
func FormatValue(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', 4, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', 4, 64), nil
	default:
		return "", &errors.ProtocolError{
			Operation: "format value",
			Message:   fmt.Sprintf("unsupported response value type %T", value),
		}
	}
}
