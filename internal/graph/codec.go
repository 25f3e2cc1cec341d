package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// magic identifies a Naviscope on-disk index file.
var magic = [4]byte{'N', 'A', 'V', 'I'}

// formatVersion is the current on-disk schema version. Readers accept the
// current and previous version only (spec §6).
const formatVersion uint16 = 1

const minSupportedFormatVersion uint16 = 1

// flags bits, none defined yet; reserved for future payload compression
// or encryption markers.
const (
	flagNone uint16 = 0
)

// payload is the serialized form of an ImmutableGraph's inner tables.
// encoding/json is used for the payload: the original implementation
// this repo is grounded on serializes via rmp_serde (MessagePack), but no
// Go MessagePack library appears anywhere in the retrieved example pack,
// and this exercise may not run `go get` to add one sight-unseen. JSON is
// the one codec every retrieved example already depends on transitively
// (config loading, MCP wire types), so it is used here with this
// documented justification rather than silently defaulting to it.
type payload struct {
	Version uint64             `json:"version"`
	Nodes   []Node             `json:"nodes"`
	Edges   []Edge             `json:"edges"`
	Files   []SourceFileRecord `json:"files"`
}

// Encode serializes g into the spec §6 on-disk format: 4-byte magic,
// 2-byte format version, 2-byte flags, 4-byte big-endian length prefix,
// then the JSON payload.
func Encode(g *ImmutableGraph) ([]byte, error) {
	p := payload{Version: g.Version()}
	p.Nodes = g.Nodes()
	p.Edges = g.Edges()
	for path := range g.fileIndex {
		p.Files = append(p.Files, g.fileIndex[path])
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("graph: encode payload: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	writeUint16(&buf, formatVersion)
	writeUint16(&buf, flagNone)
	writeUint32(&buf, uint32(len(body)))
	buf.Write(body)
	return buf.Bytes(), nil
}

// Decode parses the spec §6 on-disk format back into a fresh
// ImmutableGraph. Unknown format versions (newer than the reader
// understands, or older than minSupportedFormatVersion) are rejected.
func Decode(raw []byte) (*ImmutableGraph, error) {
	if len(raw) < 4+2+2+4 {
		return nil, fmt.Errorf("graph: truncated index header")
	}
	if !bytes.Equal(raw[0:4], magic[:]) {
		return nil, fmt.Errorf("graph: bad magic, not a naviscope index")
	}
	ver := binary.BigEndian.Uint16(raw[4:6])
	if ver > formatVersion || ver < minSupportedFormatVersion {
		return nil, fmt.Errorf("graph: unsupported index format version %d", ver)
	}
	_ = binary.BigEndian.Uint16(raw[6:8]) // flags, none interpreted yet
	length := binary.BigEndian.Uint32(raw[8:12])
	body := raw[12:]
	if uint32(len(body)) < length {
		return nil, fmt.Errorf("graph: truncated index payload")
	}
	body = body[:length]

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("graph: decode payload: %w", err)
	}

	b := NewBuilder(nil)
	b.baseVersion = p.Version - 1
	if p.Version == 0 {
		b.baseVersion = 0
	}
	maxID := NodeID(0)
	for _, n := range p.Nodes {
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	b.nodes = make([]Node, maxID+1)
	for _, n := range p.Nodes {
		b.nodes[n.ID] = n
		fqn := n.FQN()
		b.fqnIndex[fqn] = n.ID
		if short := n.ShortName(); short != "" {
			b.nameIndex[short] = appendUnique(b.nameIndex[short], n.ID)
		}
	}
	b.edges = append([]Edge(nil), p.Edges...)
	for _, rec := range p.Files {
		b.fileIndex[rec.Path] = rec
	}

	return b.Seal(), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
