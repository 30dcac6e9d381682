package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EOF container framing (EIP-3540).
const (
	eofMagic0  = 0xEF
	eofMagic1  = 0x00
	eofVersion = 0x01

	kindTypes     = 0x01
	kindCode      = 0x02
	kindContainer = 0x03
	kindData      = 0x04
	kindTerm      = 0x00

	maxCodeSections      = 1024
	maxContainerSections = 256
)

// EOF decode failure modes, tagged so callers can classify.
var (
	ErrEOFMissingInput       = errors.New("eof: missing input")
	ErrEOFInvalidMagic       = errors.New("eof: invalid magic")
	ErrEOFInvalidVersion     = errors.New("eof: invalid version")
	ErrEOFInvalidSectionKind = errors.New("eof: invalid section kind")
	ErrEOFSizeMismatch       = errors.New("eof: section size mismatch")
	ErrEOFTooManySections    = errors.New("eof: too many sections")
	ErrEOFZeroSizeSection    = errors.New("eof: zero-size section")
)

// EOFType is one types-section entry describing a code section's stack
// contract.
type EOFType struct {
	Inputs         uint8
	Outputs        uint8
	MaxStackHeight uint16
}

// EOF is a decoded container: the header section sizes plus the body
// slices. Every code section references a types entry; total body size
// must match the header.
type EOF struct {
	Types      []EOFType
	Code       [][]byte
	Containers [][]byte
	Data       []byte
}

// DecodeEOF validates and decodes an EOF container.
func DecodeEOF(raw []byte) (*EOF, error) {
	r := &eofReader{data: raw}

	magic0, err := r.byte()
	if err != nil {
		return nil, err
	}
	magic1, err := r.byte()
	if err != nil {
		return nil, err
	}
	if magic0 != eofMagic0 || magic1 != eofMagic1 {
		return nil, ErrEOFInvalidMagic
	}
	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	if version != eofVersion {
		return nil, fmt.Errorf("%w: %d", ErrEOFInvalidVersion, version)
	}

	// Types section header.
	if err := r.expectKind(kindTypes); err != nil {
		return nil, err
	}
	typesSize, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if typesSize == 0 || typesSize%4 != 0 {
		return nil, fmt.Errorf("%w: types size %d", ErrEOFSizeMismatch, typesSize)
	}

	// Code section headers.
	if err := r.expectKind(kindCode); err != nil {
		return nil, err
	}
	numCode, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if numCode == 0 {
		return nil, fmt.Errorf("%w: no code sections", ErrEOFZeroSizeSection)
	}
	if numCode > maxCodeSections {
		return nil, fmt.Errorf("%w: %d code sections", ErrEOFTooManySections, numCode)
	}
	if int(typesSize)/4 != int(numCode) {
		return nil, fmt.Errorf("%w: %d types entries for %d code sections",
			ErrEOFSizeMismatch, typesSize/4, numCode)
	}
	codeSizes := make([]uint16, numCode)
	for i := range codeSizes {
		size, err := r.uint16()
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return nil, fmt.Errorf("%w: code section %d", ErrEOFZeroSizeSection, i)
		}
		codeSizes[i] = size
	}

	// Optional container section headers, then the data section header.
	kind, err := r.byte()
	if err != nil {
		return nil, err
	}
	var containerSizes []uint16
	if kind == kindContainer {
		numContainers, err := r.uint16()
		if err != nil {
			return nil, err
		}
		if numContainers == 0 {
			return nil, fmt.Errorf("%w: container section", ErrEOFZeroSizeSection)
		}
		if numContainers > maxContainerSections {
			return nil, fmt.Errorf("%w: %d containers", ErrEOFTooManySections, numContainers)
		}
		containerSizes = make([]uint16, numContainers)
		for i := range containerSizes {
			size, err := r.uint16()
			if err != nil {
				return nil, err
			}
			if size == 0 {
				return nil, fmt.Errorf("%w: container %d", ErrEOFZeroSizeSection, i)
			}
			containerSizes[i] = size
		}
		if kind, err = r.byte(); err != nil {
			return nil, err
		}
	}
	if kind != kindData {
		return nil, fmt.Errorf("%w: 0x%02x", ErrEOFInvalidSectionKind, kind)
	}
	dataSize, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if err := r.expectKind(kindTerm); err != nil {
		return nil, err
	}

	// Body.
	container := &EOF{}
	for i := 0; i < int(typesSize)/4; i++ {
		entry, err := r.take(4)
		if err != nil {
			return nil, err
		}
		container.Types = append(container.Types, EOFType{
			Inputs:         entry[0],
			Outputs:        entry[1],
			MaxStackHeight: binary.BigEndian.Uint16(entry[2:4]),
		})
	}
	for _, size := range codeSizes {
		section, err := r.take(int(size))
		if err != nil {
			return nil, err
		}
		container.Code = append(container.Code, section)
	}
	for _, size := range containerSizes {
		section, err := r.take(int(size))
		if err != nil {
			return nil, err
		}
		container.Containers = append(container.Containers, section)
	}
	data, err := r.take(int(dataSize))
	if err != nil {
		return nil, err
	}
	container.Data = data

	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrEOFSizeMismatch, len(r.data)-r.pos)
	}
	return container, nil
}

// Encode produces the canonical container bytes: decode(encode(x)) == x
// and encode(decode(b)) == b for canonical b.
func (e *EOF) Encode() []byte {
	var out []byte
	out = append(out, eofMagic0, eofMagic1, eofVersion)
	out = append(out, kindTypes)
	out = appendUint16(out, uint16(len(e.Types)*4))
	out = append(out, kindCode)
	out = appendUint16(out, uint16(len(e.Code)))
	for _, section := range e.Code {
		out = appendUint16(out, uint16(len(section)))
	}
	if len(e.Containers) > 0 {
		out = append(out, kindContainer)
		out = appendUint16(out, uint16(len(e.Containers)))
		for _, section := range e.Containers {
			out = appendUint16(out, uint16(len(section)))
		}
	}
	out = append(out, kindData)
	out = appendUint16(out, uint16(len(e.Data)))
	out = append(out, kindTerm)
	for _, entry := range e.Types {
		out = append(out, entry.Inputs, entry.Outputs)
		out = appendUint16(out, entry.MaxStackHeight)
	}
	for _, section := range e.Code {
		out = append(out, section...)
	}
	for _, section := range e.Containers {
		out = append(out, section...)
	}
	out = append(out, e.Data...)
	return out
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

type eofReader struct {
	data []byte
	pos  int
}

func (r *eofReader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrEOFMissingInput
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *eofReader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *eofReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, ErrEOFMissingInput
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *eofReader) expectKind(kind byte) error {
	b, err := r.byte()
	if err != nil {
		return err
	}
	if b != kind {
		return fmt.Errorf("%w: 0x%02x", ErrEOFInvalidSectionKind, b)
	}
	return nil
}
