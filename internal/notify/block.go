package notify

import "fmt"

// BlockOption is a CoAP Block2 option: block number, more flag and size
// exponent. The block size is 16 << SZX bytes.
type BlockOption struct {
	Num  uint32
	More bool
	SZX  uint8
}

// MaxSZX is the largest size exponent, 1024 byte blocks.
const MaxSZX = 6

func (b BlockOption) Size() int { return 16 << b.SZX }

// Value encodes the option as num<<4 | more<<3 | szx.
func (b BlockOption) Value() uint32 {
	v := b.Num<<4 | uint32(b.SZX&0x7)
	if b.More {
		v |= 1 << 3
	}
	return v
}

func (b BlockOption) String() string {
	return fmt.Sprintf("%d/%v/%d", b.Num, b.More, b.Size())
}

// ParseBlockOption decodes an option value. Values with the reserved size
// exponent 7 or a number beyond 20 bits are rejected.
func ParseBlockOption(v uint32) (BlockOption, bool) {
	szx := uint8(v & 0x7)
	if szx > MaxSZX || v>>4 > 1<<20-1 {
		return BlockOption{}, false
	}
	return BlockOption{Num: v >> 4, More: v&0x8 != 0, SZX: szx}, true
}

// Next returns the request option for the following block.
func (b BlockOption) Next() BlockOption {
	return BlockOption{Num: b.Num + 1, SZX: b.SZX}
}
