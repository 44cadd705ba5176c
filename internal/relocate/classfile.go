// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Constant pool tags, JVMS 4.4.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20

	classMagic = 0xCAFEBABE
	headerSize = 10 // magic, minor, major, constant_pool_count
)

var (
	// ErrNotClass is returned when data does not start with the class magic.
	ErrNotClass = errors.New("not a class file")
	// ErrTruncated is returned when the constant pool runs past the data.
	ErrTruncated = errors.New("truncated class file")
)

// UnknownTagError reports a constant pool tag this reader does not know.
type UnknownTagError struct {
	Tag   byte
	Index int
}

// Error implements error.
func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown constant pool tag %d at index %d", e.Tag, e.Index)
}

// fixedSize is the payload size, after the tag byte, of every non-Utf8 tag.
var fixedSize = map[byte]int{
	tagInteger:            4,
	tagFloat:              4,
	tagLong:               8,
	tagDouble:             8,
	tagClass:              2,
	tagString:             2,
	tagFieldref:           4,
	tagMethodref:          4,
	tagInterfaceMethodref: 4,
	tagNameAndType:        4,
	tagMethodHandle:       3,
	tagMethodType:         2,
	tagDynamic:            4,
	tagInvokeDynamic:      4,
	tagModule:             2,
	tagPackage:            2,
}

// RewriteUtf8 returns a copy of the class file data with every CONSTANT_Utf8
// entry passed through fn. Everything outside the constant pool is copied
// byte for byte. When fn changes nothing, data itself is returned.
func RewriteUtf8(data []byte, fn func(string) string) ([]byte, error) {
	if len(data) < headerSize || binary.BigEndian.Uint32(data) != classMagic {
		return nil, ErrNotClass
	}

	count := int(binary.BigEndian.Uint16(data[8:]))
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/8)
	out.Write(data[:headerSize])

	changed := false
	pos := headerSize
	for i := 1; i < count; i++ {
		if pos >= len(data) {
			return nil, ErrTruncated
		}
		tag := data[pos]

		if tag == tagUtf8 {
			if pos+3 > len(data) {
				return nil, ErrTruncated
			}
			n := int(binary.BigEndian.Uint16(data[pos+1:]))
			end := pos + 3 + n
			if end > len(data) {
				return nil, ErrTruncated
			}
			orig := string(data[pos+3 : end])
			next := fn(orig)
			if next != orig {
				if len(next) > 0xFFFF {
					return nil, fmt.Errorf("constant %d grows past 65535 bytes", i)
				}
				changed = true
			}
			out.WriteByte(tagUtf8)
			_ = binary.Write(&out, binary.BigEndian, uint16(len(next)))
			out.WriteString(next)
			pos = end
			continue
		}

		size, ok := fixedSize[tag]
		if !ok {
			return nil, &UnknownTagError{Tag: tag, Index: i}
		}
		end := pos + 1 + size
		if end > len(data) {
			return nil, ErrTruncated
		}
		out.Write(data[pos:end])
		pos = end
		if tag == tagLong || tag == tagDouble {
			// Eight-byte constants take two pool slots.
			i++
		}
	}

	if !changed {
		return data, nil
	}
	out.Write(data[pos:])
	return out.Bytes(), nil
}

// Utf8Constants returns every CONSTANT_Utf8 value of the class file in pool
// order.
func Utf8Constants(data []byte) ([]string, error) {
	var out []string
	_, err := RewriteUtf8(data, func(s string) string {
		out = append(out, s)
		return s
	})
	return out, err
}
