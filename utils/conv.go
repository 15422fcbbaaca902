package utils

import (
	"bytes"
	"encoding/binary"
)

func AsBytes(data interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
