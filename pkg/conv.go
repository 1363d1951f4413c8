package pkg

import (
	"encoding/binary"
	"fmt"
)

func Int64ToBytes(num int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(num))
	return b
}

func BytesToInt64(bytes []byte) (int64, error) {
	if len(bytes) != 8 {
		return 0, fmt.Errorf("input byte slice should have length 8, got %d", len(bytes))
	}
	return int64(binary.BigEndian.Uint64(bytes)), nil
}
