// Package bx is a tiny byte-encoding helper, little-endian throughout.
package bx

import "encoding/binary"

var le = binary.LittleEndian

func U16(b []byte) uint16 { return le.Uint16(b) }
func U32(b []byte) uint32 { return le.Uint32(b) }
func U64(b []byte) uint64 { return le.Uint64(b) }

func PutU16(b []byte, v uint16) { le.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { le.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { le.PutUint64(b, v) }
