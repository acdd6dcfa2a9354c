package tickfile

import (
	"encoding/binary"
	"math"

	"felix/internal/schema"
)

// RecordSize is the fixed on-disk size of one tick record.
//
//	[0:8]   timestamp ns   u64
//	[8:12]  symbol id      u32
//	[12:16] price          f32
//	[16:20] bid            f32
//	[20:24] ask            f32
//	[24:28] bid size       f32
//	[28:32] ask size       f32
//	[32:36] volume         u32
//	[36:40] reserved
const RecordSize = 40

// EncodeTick serializes a tick into a fixed-size little-endian record.
func EncodeTick(dst []byte, tick schema.Tick) []byte {
	if cap(dst) < RecordSize {
		dst = make([]byte, RecordSize)
	} else {
		dst = dst[:RecordSize]
	}

	binary.LittleEndian.PutUint64(dst[0:8], tick.Timestamp)
	binary.LittleEndian.PutUint32(dst[8:12], tick.SymbolID)
	putFloat32(dst[12:16], tick.Price)
	putFloat32(dst[16:20], tick.Bid)
	putFloat32(dst[20:24], tick.Ask)
	putFloat32(dst[24:28], tick.BidSize)
	putFloat32(dst[28:32], tick.AskSize)
	binary.LittleEndian.PutUint32(dst[32:36], tick.Volume)
	binary.LittleEndian.PutUint32(dst[36:40], 0)

	return dst
}

// DecodeTick parses a fixed-size tick record.
func DecodeTick(src []byte) (schema.Tick, bool) {
	if len(src) < RecordSize {
		return schema.Tick{}, false
	}
	return schema.Tick{
		Timestamp: binary.LittleEndian.Uint64(src[0:8]),
		SymbolID:  binary.LittleEndian.Uint32(src[8:12]),
		Price:     getFloat32(src[12:16]),
		Bid:       getFloat32(src[16:20]),
		Ask:       getFloat32(src[20:24]),
		BidSize:   getFloat32(src[24:28]),
		AskSize:   getFloat32(src[28:32]),
		Volume:    binary.LittleEndian.Uint32(src[32:36]),
	}, true
}

func putFloat32(dst []byte, v float64) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
}

func getFloat32(src []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
}
