package afpacket

import (
	"fmt"
)

const (
	tpacketAlignment = 16      // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52      // TPACKET3_HDRLEN, rounded
	maxBlockSize     = 4 << 20 // largest block the ring uses
)

// ringSize computes the PACKET_MMAP ring geometry for a memory budget of
// bufferMB megabytes. frameSize is TPACKET_ALIGNMENT aligned, blockSize is a
// multiple of both pageSize and frameSize, and blockSize*numBlocks stays
// close to the budget.
func ringSize(bufferMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	if bufferMB <= 0 {
		return 0, 0, 0, fmt.Errorf("buffer size must be positive, got %d MB", bufferMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snap length must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return 0, 0, 0, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frameSize = roundUp(tpacketHdrLen+snapLen, tpacketAlignment)

	blockSize = lcm(pageSize, frameSize)
	if blockSize > maxBlockSize {
		// No aligned block fits, so pad frames to whole pages instead.
		frameSize = roundUp(frameSize, pageSize)
		blockSize = frameSize * max(1, maxBlockSize/frameSize)
	} else {
		blockSize *= max(1, maxBlockSize/blockSize)
	}

	numBlocks = max(1, bufferMB*1024*1024/blockSize)
	return frameSize, blockSize, numBlocks, nil
}

func roundUp(n, multiple int) int {
	return ((n + multiple - 1) / multiple) * multiple
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return (a * b) / gcd(a, b)
}
