// Package loader reads program images into simulated memory.
package loader

import (
	"bytes"
	"io"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

var UnknownFormat = errors.New("could not identify image format")

// Chunk is a run of bytes placed at Addr.
type Chunk struct {
	Addr uint64
	Data []byte
}

// Image is a parsed program: its chunks, entry point and symbols.
type Image struct {
	Format   string
	Bits     int
	Entry    uint64
	HasEntry bool
	Chunks   []Chunk
	Symbols  models.Symbols
}

// Size is the number of bytes the image places.
func (i *Image) Size() int {
	n := 0
	for _, c := range i.Chunks {
		n += len(c.Data)
	}
	return n
}

// Apply writes every chunk into mem, ignoring segment protections.
func (i *Image) Apply(mem *cpu.Mem) error {
	for _, c := range i.Chunks {
		if err := mem.Poke(c.Addr, c.Data); err != nil {
			return errors.Wrapf(err, "loading %d bytes at 0x%x", len(c.Data), c.Addr)
		}
	}
	return nil
}

type parser func(p []byte, base uint64) (*Image, error)

var parsers = map[string]parser{
	"elf":      parseElf,
	"binary":   parseBinary,
	"hextext":  parseHexText,
	"intelhex": parseIntelHex,
}

func Formats() []string {
	names := []string{"auto"}
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names[1:])
	return names
}

// Detect guesses the format of p from its first bytes.
func Detect(p []byte) string {
	if MatchElf(bytes.NewReader(p)) {
		return "elf"
	}
	text := strings.TrimSpace(string(p))
	if text == "" {
		return "binary"
	}
	if text[0] == ':' {
		return "intelhex"
	}
	if isHexText(text) {
		return "hextext"
	}
	return "binary"
}

// Load parses p as format ("auto" to detect). base is where headerless
// formats are placed.
func Load(p []byte, format string, base uint64) (*Image, error) {
	if format == "" || format == "auto" {
		format = Detect(p)
	}
	parse, ok := parsers[format]
	if !ok {
		return nil, models.NewConfigError("loader", "unknown image format %q", format)
	}
	img, err := parse(p, base)
	if err != nil {
		return nil, err
	}
	img.Format = format
	return img, nil
}

func LoadReader(r io.Reader, format string, base uint64) (*Image, error) {
	p, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Load(p, format, base)
}

func LoadFile(path, format string, base uint64) (*Image, error) {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Load(p, format, base)
}

func parseBinary(p []byte, base uint64) (*Image, error) {
	if len(p) == 0 {
		return &Image{}, nil
	}
	return &Image{Chunks: []Chunk{{Addr: base, Data: append([]byte(nil), p...)}}}, nil
}
