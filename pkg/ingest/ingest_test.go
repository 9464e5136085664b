/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: ingest_test.go
Description: Tests for capture and plain-file ingestion. Captures are generated in memory
with pcapgo so no fixture files are needed.
*/

package ingest_test

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/kleascm/protoinfer/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPacket struct {
	tcp     bool
	srcPort int
	dstPort int
	payload []byte
	ts      time.Time
}

func buildCapture(t *testing.T, packets []testPacket) []byte {
	t.Helper()

	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, p := range packets {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version: 4,
			TTL:     64,
			SrcIP:   net.IP{10, 0, 0, 1},
			DstIP:   net.IP{10, 0, 0, 2},
		}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
		var err error
		if p.tcp {
			ip.Protocol = layers.IPProtocolTCP
			tcp := &layers.TCP{SrcPort: layers.TCPPort(p.srcPort), DstPort: layers.TCPPort(p.dstPort), PSH: true, ACK: true, Window: 1024}
			require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
			err = gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(p.payload))
		} else {
			ip.Protocol = layers.IPProtocolUDP
			udp := &layers.UDP{SrcPort: layers.UDPPort(p.srcPort), DstPort: layers.UDPPort(p.dstPort)}
			require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
			err = gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(p.payload))
		}
		require.NoError(t, err)

		data := buf.Bytes()
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     p.ts,
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	return out.Bytes()
}

func TestReadPcap(t *testing.T) {
	base := time.Unix(1700000000, 0)
	capture := buildCapture(t, []testPacket{
		{tcp: true, srcPort: 40000, dstPort: 80, payload: []byte("GET / HTTP/1.1\r\n"), ts: base},
		{tcp: false, srcPort: 5353, dstPort: 53, payload: []byte{0xde, 0xad, 0xbe, 0xef}, ts: base.Add(time.Second)},
		{tcp: true, srcPort: 40000, dstPort: 80, payload: nil, ts: base.Add(2 * time.Second)},
	})

	msgs, err := ingest.ReadPcap(bytes.NewReader(capture), ingest.PcapOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 2, "empty payloads are skipped")

	assert.Equal(t, []byte("GET / HTTP/1.1\r\n"), msgs[0].Payload())
	assert.Equal(t, "tcp", msgs[0].Protocol())
	assert.Equal(t, "10.0.0.1:40000", msgs[0].Source())
	assert.Equal(t, "10.0.0.2:80", msgs[0].Destination())
	assert.True(t, base.Equal(msgs[0].Timestamp()))

	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, msgs[1].Payload())
	assert.Equal(t, "udp", msgs[1].Protocol())
	assert.NotEqual(t, msgs[0].ID(), msgs[1].ID())
}

func TestReadPcapFilters(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	capture := buildCapture(t, []testPacket{
		{tcp: true, srcPort: 1000, dstPort: 80, payload: []byte("a"), ts: ts},
		{tcp: false, srcPort: 1000, dstPort: 53, payload: []byte("b"), ts: ts},
		{tcp: true, srcPort: 1000, dstPort: 443, payload: []byte("c"), ts: ts},
		{tcp: true, srcPort: 80, dstPort: 1001, payload: []byte("d"), ts: ts},
	})

	t.Run("protocol", func(t *testing.T) {
		msgs, err := ingest.ReadPcap(bytes.NewReader(capture), ingest.PcapOptions{Protocol: "UDP"})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, []byte("b"), msgs[0].Payload())
	})

	t.Run("ports", func(t *testing.T) {
		msgs, err := ingest.ReadPcap(bytes.NewReader(capture), ingest.PcapOptions{Ports: []int{80}})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, []byte("a"), msgs[0].Payload())
		assert.Equal(t, []byte("d"), msgs[1].Payload())
	})

	t.Run("limit", func(t *testing.T) {
		msgs, err := ingest.ReadPcap(bytes.NewReader(capture), ingest.PcapOptions{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, msgs, 3)
	})
}

func TestReadPcapInvalid(t *testing.T) {
	_, err := ingest.ReadPcap(strings.NewReader("not a capture file"), ingest.PcapOptions{})
	assert.Error(t, err)

	_, err = ingest.ReadPcap(bytes.NewReader(nil), ingest.PcapOptions{})
	assert.Error(t, err)
}

func TestReadPcapFile(t *testing.T) {
	capture := buildCapture(t, []testPacket{
		{srcPort: 9000, dstPort: 9001, payload: []byte{0x01, 0x02}, ts: time.Unix(1, 0)},
	})
	path := filepath.Join(t.TempDir(), "trace.pcap")
	require.NoError(t, os.WriteFile(path, capture, 0644))

	msgs, err := ingest.ReadPcapFile(path, ingest.PcapOptions{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte{0x01, 0x02}, msgs[0].Payload())

	_, err = ingest.ReadPcapFile(filepath.Join(t.TempDir(), "missing.pcap"), ingest.PcapOptions{})
	assert.Error(t, err)
}

func TestReadHexLines(t *testing.T) {
	input := `# captured by hand
deadbeef

00 01 02
aa:bb
`
	msgs, err := ingest.ReadHexLines(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, msgs[0].Payload())
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, msgs[1].Payload())
	assert.Equal(t, []byte{0xaa, 0xbb}, msgs[2].Payload())

	_, err = ingest.ReadHexLines(strings.NewReader("deadbeef\nzz\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("first"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	msgs, err := ingest.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a.bin", msgs[0].ID())
	assert.Equal(t, []byte("first"), msgs[0].Payload())
	assert.Equal(t, "b.bin", msgs[1].ID())

	_, err = ingest.ReadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
