package wire

import "sync"

// receiveBufferPool holds byte slices sized for a single line-dialect read
// chunk so the decoder does not allocate on every connection.
var receiveBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 4096)
		return &buf
	},
}

func getReceiveBuffer() *[]byte {
	return receiveBufferPool.Get().(*[]byte)
}

func putReceiveBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	receiveBufferPool.Put(bufPtr)
}
