package models

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/ioutil"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// savestate file:
//
// header (big endian, uncompressed)
// [4]byte magic "RVSS", uint32 version, uint8 xlen, uint16 hart count,
// uint32 crc32 of the compressed body, uint32 compressed length
//
// body (snappy block)
// uint64 heap break, then per hart: id, pc, integer registers, float
// registers, (csr number, value) pairs; then uint64 word count and
// (addr, value) pairs for every written word.

const (
	saveMagic   = "RVSS"
	saveVersion = 1
)

var ErrBadSavestate = errors.New("bad savestate")

type saveHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	XLEN    uint8
	Harts   uint16
	Crc     uint32
	Size    uint32
}

type CSRState struct {
	Num uint16
	Val uint64
}

type HartState struct {
	ID      uint16
	PC      uint64
	NumRegs uint16 `struc:"sizeof=Regs"`
	Regs    []uint64
	NumF    uint16 `struc:"sizeof=F"`
	F       []uint64
	NumCSR  uint16 `struc:"sizeof=CSR"`
	CSR     []CSRState
}

type WordState struct {
	Addr uint64
	Val  uint32
}

// SaveState is a full machine snapshot, independent of the engine that
// produced it.
type SaveState struct {
	XLEN  int
	Break uint64
	Harts []HartState
	Words []WordState
}

type strucStream struct {
	io.ReadWriter
	options *struc.Options
}

func (s strucStream) Pack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.PackWithOptions(s, v, s.options); err != nil {
			return err
		}
	}
	return nil
}

func (s strucStream) Unpack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.UnpackWithOptions(s, v, s.options); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo encodes the snapshot.
func (s *SaveState) WriteTo(w io.Writer) (int64, error) {
	var body bytes.Buffer
	stream := strucStream{&body, &struc.Options{Order: binary.BigEndian}}
	if err := stream.Pack(s.Break); err != nil {
		return 0, errors.Wrap(err, "savestate")
	}
	for i := range s.Harts {
		if err := stream.Pack(&s.Harts[i]); err != nil {
			return 0, errors.Wrap(err, "savestate hart")
		}
	}
	if err := stream.Pack(uint64(len(s.Words))); err != nil {
		return 0, errors.Wrap(err, "savestate")
	}
	for i := range s.Words {
		if err := stream.Pack(&s.Words[i]); err != nil {
			return 0, errors.Wrap(err, "savestate memory")
		}
	}
	data := snappy.Encode(nil, body.Bytes())

	var final bytes.Buffer
	header := &saveHeader{
		Magic:   saveMagic,
		Version: saveVersion,
		XLEN:    uint8(s.XLEN),
		Harts:   uint16(len(s.Harts)),
		Crc:     crc32.ChecksumIEEE(data),
		Size:    uint32(len(data)),
	}
	if err := struc.Pack(&final, header); err != nil {
		return 0, errors.Wrap(err, "savestate header")
	}
	final.Write(data)
	n, err := final.WriteTo(w)
	return n, errors.WithStack(err)
}

// ReadSaveState decodes a snapshot written by WriteTo.
func ReadSaveState(r io.Reader) (*SaveState, error) {
	var header saveHeader
	if err := struc.Unpack(r, &header); err != nil {
		return nil, errors.Wrap(err, "savestate header")
	}
	if header.Magic != saveMagic {
		return nil, errors.Wrapf(ErrBadSavestate, "magic %q", header.Magic)
	}
	if header.Version != saveVersion {
		return nil, errors.Wrapf(ErrBadSavestate, "version %d", header.Version)
	}
	data, err := ioutil.ReadAll(io.LimitReader(r, int64(header.Size)))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if uint32(len(data)) != header.Size || crc32.ChecksumIEEE(data) != header.Crc {
		return nil, errors.Wrap(ErrBadSavestate, "body checksum mismatch")
	}
	body, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, "savestate body")
	}
	stream := strucStream{bytes.NewBuffer(body), &struc.Options{Order: binary.BigEndian}}
	s := &SaveState{XLEN: int(header.XLEN), Harts: make([]HartState, header.Harts)}
	if err := stream.Unpack(&s.Break); err != nil {
		return nil, errors.Wrap(err, "savestate")
	}
	for i := range s.Harts {
		if err := stream.Unpack(&s.Harts[i]); err != nil {
			return nil, errors.Wrap(err, "savestate hart")
		}
	}
	var count uint64
	if err := stream.Unpack(&count); err != nil {
		return nil, errors.Wrap(err, "savestate")
	}
	if count > uint64(len(body))/12 {
		return nil, errors.Wrapf(ErrBadSavestate, "%d words in a %d byte body", count, len(body))
	}
	s.Words = make([]WordState, count)
	for i := range s.Words {
		if err := stream.Unpack(&s.Words[i]); err != nil {
			return nil, errors.Wrap(err, "savestate memory")
		}
	}
	return s, nil
}
