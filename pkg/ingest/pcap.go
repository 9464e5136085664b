/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pcap.go
Description: Capture file ingestion. Reads pcap and pcapng files, decodes every packet
down to its transport layer, and turns each non-empty TCP or UDP payload into a message
carrying its endpoints and capture time.
*/

package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/sirupsen/logrus"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// PcapOptions filters the packets turned into messages
type PcapOptions struct {
	Protocol string             // "tcp", "udp", or empty for both
	Ports    []int              // Keep packets whose source or destination port is listed; empty keeps all
	Limit    int                // Stop after this many messages, 0 = no limit
	Logger   logrus.FieldLogger // Receives per-packet decode problems; nil discards them
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// ReadPcapFile opens a capture file and reads it with ReadPcap
func ReadPcapFile(path string, opts PcapOptions) ([]*core.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	return ReadPcap(f, opts)
}

// ReadPcap reads a pcap or pcapng stream
func ReadPcap(r io.Reader, opts PcapOptions) ([]*core.Message, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var src packetReader
	if bytes.Equal(magic, pcapngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}

	var msgs []*core.Message
	for opts.Limit == 0 || len(msgs) < opts.Limit {
		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return msgs, fmt.Errorf("failed to read packet %d: %w", len(msgs), err)
		}

		packet := gopacket.NewPacket(data, src.LinkType(), gopacket.Default)
		if m := opts.message(packet, ci); m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// message extracts the transport payload of one packet, or nil if the packet is filtered
func (o PcapOptions) message(packet gopacket.Packet, ci gopacket.CaptureInfo) *core.Message {
	if errLayer := packet.ErrorLayer(); errLayer != nil && o.Logger != nil {
		o.Logger.WithFields(logrus.Fields{
			"timestamp": ci.Timestamp,
			"error":     errLayer.Error(),
		}).Debug("Packet partially decoded")
	}

	network := packet.NetworkLayer()
	if network == nil {
		return nil
	}

	var proto string
	var srcPort, dstPort int
	var payload []byte
	switch t := packet.TransportLayer().(type) {
	case *layers.TCP:
		proto, srcPort, dstPort, payload = "tcp", int(t.SrcPort), int(t.DstPort), t.Payload
	case *layers.UDP:
		proto, srcPort, dstPort, payload = "udp", int(t.SrcPort), int(t.DstPort), t.Payload
	default:
		return nil
	}

	if len(payload) == 0 {
		return nil
	}
	if o.Protocol != "" && !strings.EqualFold(o.Protocol, proto) {
		return nil
	}
	if len(o.Ports) > 0 && !containsPort(o.Ports, srcPort) && !containsPort(o.Ports, dstPort) {
		return nil
	}

	flow := network.NetworkFlow()
	return core.NewMessage(payload,
		core.WithProvenance(proto,
			net.JoinHostPort(flow.Src().String(), strconv.Itoa(srcPort)),
			net.JoinHostPort(flow.Dst().String(), strconv.Itoa(dstPort)),
		),
		core.WithTimestamp(ci.Timestamp),
	)
}

func containsPort(ports []int, p int) bool {
	for _, q := range ports {
		if q == p {
			return true
		}
	}
	return false
}
