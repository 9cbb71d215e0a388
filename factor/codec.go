/*
Copyright 2026 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package factor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Factors is a prime factorisation, smallest factor first.
//
// Its binary form is a protobuf message with the factors in field 1 as
// packed varints:
//
//	message Factors { repeated uint64 factors = 1; }
type Factors []uint64

const factorsField protowire.Number = 1

// Product multiplies the factors back together. The empty factorisation
// is that of 1.
func (f Factors) Product() uint64 {
	p := uint64(1)
	for _, x := range f {
		p *= x
	}
	return p
}

// String formats the factors as "2 x 2 x 3"; the empty factorisation is
// "1".
func (f Factors) String() string {
	if len(f) == 0 {
		return "1"
	}
	parts := make([]string, len(f))
	for i, x := range f {
		parts[i] = strconv.FormatUint(x, 10)
	}
	return strings.Join(parts, " x ")
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f Factors) MarshalBinary() ([]byte, error) {
	if len(f) == 0 {
		return []byte{}, nil
	}
	packed := make([]byte, 0, len(f)*2)
	for _, x := range f {
		packed = protowire.AppendVarint(packed, x)
	}
	b := protowire.AppendTag(make([]byte, 0, len(packed)+4), factorsField, protowire.BytesType)
	return protowire.AppendBytes(b, packed), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. It accepts both
// packed and unpacked encodings of field 1 and skips unknown fields.
func (f *Factors) UnmarshalBinary(data []byte) error {
	out := Factors{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("factor: decoding tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num != factorsField {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("factor: skipping field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return fmt.Errorf("factor: decoding factor: %w", protowire.ParseError(n))
			}
			out = append(out, v)
			data = data[n:]
		case protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("factor: decoding packed factors: %w", protowire.ParseError(n))
			}
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return fmt.Errorf("factor: decoding packed factor: %w", protowire.ParseError(m))
				}
				out = append(out, v)
				packed = packed[m:]
			}
			data = data[n:]
		default:
			return errWireType
		}
	}
	*f = out
	return nil
}

var errWireType = errors.New("factor: unexpected wire type for factors field")
