// Package file reads frames from pcap and pcapng capture files.
package file

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/otusdpi/internal/core"
)

// Format is the on-disk capture format.
type Format string

const (
	FormatPcap   Format = "pcap"
	FormatPcapNG Format = "pcapng"
)

// ngMagic is the pcapng section header block type, identical in both byte orders.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Source reads a capture file sequentially.
type Source struct {
	name     string
	format   Format
	closer   io.Closer
	reader   packetReader
	linkType layers.LinkType
}

// Open opens the capture file at path. The format is detected from the
// file's magic number.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file %s: %w", path, err)
	}
	s, err := NewReader(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewReader reads a capture from r. name is used in logs and reports.
func NewReader(name string, r io.Reader) (*Source, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		return nil, fmt.Errorf("read capture header %s: %w", name, err)
	}

	s := &Source{name: name}
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("read pcapng %s: %w", name, err)
		}
		s.format, s.reader, s.linkType = FormatPcapNG, ng, ng.LinkType()
		return s, nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("read pcap %s: %w", name, err)
	}
	s.format, s.reader, s.linkType = FormatPcap, pr, pr.LinkType()
	return s, nil
}

// ReadPacket returns the next frame in file order, or io.EOF at the end.
func (s *Source) ReadPacket(ctx context.Context) (core.RawPacket, error) {
	if err := ctx.Err(); err != nil {
		return core.RawPacket{}, err
	}
	if s.reader == nil {
		return core.RawPacket{}, core.ErrSourceClosed
	}

	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return core.RawPacket{}, io.EOF
		}
		return core.RawPacket{}, fmt.Errorf("read packet from %s: %w", s.name, err)
	}

	return core.RawPacket{
		Data:       data,
		Timestamp:  ci.Timestamp,
		CaptureLen: uint32(ci.CaptureLength),
		OrigLen:    uint32(ci.Length),
	}, nil
}

func (s *Source) LinkType() layers.LinkType {
	return s.linkType
}

func (s *Source) Name() string {
	return s.name
}

// Format reports whether the file is pcap or pcapng.
func (s *Source) Format() Format {
	return s.format
}

func (s *Source) Close() error {
	s.reader = nil
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
