package device

import (
	"fmt"
	"net"
	"time"
)

// WLED protocol identifiers and their per-datagram pixel capacity.
// WARLS carries a one-byte pixel index, so it can address at most 256
// pixels in total; DRGB is sequential with no index and fits 490
// pixels in one datagram; DNRGB prefixes each chunk with a two-byte
// start index and addresses 489 pixels per datagram.
const (
	warlsProtocol byte = 1
	drgbProtocol  byte = 2
	dnrgbProtocol byte = 3

	warlsMaxPixels = 256
	drgbMaxPixels  = 490
	dnrgbMaxPixels = 489

	// Seconds WLED keeps showing the frame before reverting to its own
	// effect when no further datagrams arrive.
	wledHoldSeconds byte = 2

	defaultWLEDPort = 21324
)

// WLED drives a network pixel node over UDP. Draw serializes the frame
// into one of the three wire encodings, chunking frames that exceed a
// datagram's pixel capacity. Send failures are transient: the device
// stays open and the next frame retries.
type WLED struct {
	host     string
	port     int
	protocol string
	w, h     int
	chunkPix int
	timeout  time.Duration

	conn net.Conn
}

func init() {
	Register("WLED", func(cfg Config) (Device, error) {
		return NewWLED(cfg)
	})
}

// NewWLED validates the WLED config schema: host (required), port,
// protocol (WARLS|DRGB|DNRGB), width and height (required), timeout_ms
// and an optional datagram_pixels override below the protocol cap.
func NewWLED(cfg Config) (*WLED, error) {
	s := newSchema("WLED", cfg)
	host := s.stringField("host", true, "")
	port := s.intField("port", false, defaultWLEDPort, 1, 65535)
	protocol := s.enumField("protocol", false, "DNRGB", "WARLS", "DRGB", "DNRGB")
	w := s.intField("width", true, 0, 1, 4096)
	h := s.intField("height", true, 0, 1, 4096)
	timeoutMs := s.intField("timeout_ms", false, 2000, 1, 60000)

	cap := protocolCap(protocol)
	chunkPix := s.intField("datagram_pixels", false, cap, 1, cap)
	if err := s.finish(); err != nil {
		return nil, err
	}

	pixels := w * h
	switch protocol {
	case "WARLS":
		if pixels > warlsMaxPixels {
			return nil, errf(KindInvalidConfig, "WLED", "WARLS addresses at most %d pixels, canvas has %d", warlsMaxPixels, pixels)
		}
	case "DRGB":
		if pixels > drgbMaxPixels {
			return nil, errf(KindInvalidConfig, "WLED", "DRGB addresses at most %d pixels, canvas has %d", drgbMaxPixels, pixels)
		}
	}

	return &WLED{
		host:     host,
		port:     port,
		protocol: protocol,
		w:        w,
		h:        h,
		chunkPix: chunkPix,
		timeout:  time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

func protocolCap(protocol string) int {
	switch protocol {
	case "WARLS":
		return warlsMaxPixels
	case "DRGB":
		return drgbMaxPixels
	}
	return dnrgbMaxPixels
}

func (d *WLED) Open() error {
	conn, err := net.DialTimeout("udp", net.JoinHostPort(d.host, fmt.Sprintf("%d", d.port)), d.timeout)
	if err != nil {
		return wrapf(KindUnavailable, "WLED", err, "dial %s:%d", d.host, d.port)
	}
	d.conn = conn
	return nil
}

func (d *WLED) Size() (int, int) { return d.w, d.h }

func (d *WLED) Draw(buf []byte) error {
	if d.conn == nil {
		return errf(KindUnavailable, "WLED", "draw on closed device")
	}
	if len(buf) != d.w*d.h*3 {
		return errf(KindIOError, "WLED", "buffer is %d bytes, want %d", len(buf), d.w*d.h*3)
	}
	for _, packet := range EncodeFrame(d.protocol, buf, d.chunkPix) {
		d.conn.SetWriteDeadline(time.Now().Add(d.timeout))
		if _, err := d.conn.Write(packet); err != nil {
			return wrapf(KindIOError, "WLED", err, "send %s datagram", d.protocol)
		}
	}
	return nil
}

// Close blanks the node and releases the socket. Idempotent.
func (d *WLED) Close() error {
	if d.conn == nil {
		return nil
	}
	// Best effort: leave the node dark rather than frozen on the last
	// frame.
	d.Draw(make([]byte, d.w*d.h*3))
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return wrapf(KindIOError, "WLED", err, "close socket")
	}
	return nil
}

// EncodeFrame splits a packed RGB buffer into wire datagrams for the
// given protocol. Chunk boundaries always fall on whole pixels; a
// triplet is never split across datagrams. Exported so the exact wire
// layout is testable without a socket.
func EncodeFrame(protocol string, buf []byte, chunkPix int) [][]byte {
	pixels := len(buf) / 3
	var packets [][]byte
	switch protocol {
	case "WARLS":
		for start := 0; start < pixels; start += chunkPix {
			end := min(start+chunkPix, pixels)
			packet := make([]byte, 2, 2+(end-start)*4)
			packet[0] = warlsProtocol
			packet[1] = wledHoldSeconds
			for i := start; i < end; i++ {
				packet = append(packet, byte(i), buf[i*3], buf[i*3+1], buf[i*3+2])
			}
			packets = append(packets, packet)
		}
	case "DRGB":
		end := min(chunkPix, pixels)
		packet := make([]byte, 2, 2+end*3)
		packet[0] = drgbProtocol
		packet[1] = wledHoldSeconds
		packet = append(packet, buf[:end*3]...)
		packets = append(packets, packet)
	default: // DNRGB
		for start := 0; start < pixels; start += chunkPix {
			end := min(start+chunkPix, pixels)
			packet := make([]byte, 4, 4+(end-start)*3)
			packet[0] = dnrgbProtocol
			packet[1] = wledHoldSeconds
			packet[2] = byte(start >> 8)
			packet[3] = byte(start & 0xff)
			packet = append(packet, buf[start*3:end*3]...)
			packets = append(packets, packet)
		}
	}
	return packets
}
