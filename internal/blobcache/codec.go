package blobcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// On-disk layout, big endian:
//
//	magic[4] version[1] flags[1] storedAt[8] ctLen[2] contentType[ctLen] body
const (
	headerSize   = 16
	codecVersion = 1

	flagCompressed = 1 << 0
)

var magic = [4]byte{'A', 'L', 'R', 'U'}

var errCorrupt = errors.New("corrupt cache entry")

// encodeEntry converts an Entry to bytes.
func (c *Cache) encodeEntry(entry *Entry) ([]byte, error) {
	if len(entry.ContentType) > math.MaxUint16 {
		return nil, fmt.Errorf("content type too long: %d bytes", len(entry.ContentType))
	}

	body := entry.Body
	var flags byte
	if c.compress {
		body = c.encoder.EncodeAll(entry.Body, nil)
		flags |= flagCompressed
	}

	buf := make([]byte, 0, headerSize+len(entry.ContentType)+len(body))
	buf = append(buf, magic[:]...)
	buf = append(buf, codecVersion, flags)
	buf = binary.BigEndian.AppendUint64(buf, uint64(entry.StoredAt.UnixNano()))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(entry.ContentType)))
	buf = append(buf, entry.ContentType...)
	buf = append(buf, body...)

	return buf, nil
}

// decodeEntry converts bytes to an Entry.
func (c *Cache) decodeEntry(data []byte) (*Entry, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", errCorrupt, len(data))
	}
	if [4]byte(data[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", errCorrupt)
	}
	if data[4] != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorrupt, data[4])
	}
	flags := data[5]

	storedAt := int64(binary.BigEndian.Uint64(data[6:14]))
	ctLen := int(binary.BigEndian.Uint16(data[14:16]))
	if len(data) < headerSize+ctLen {
		return nil, fmt.Errorf("%w: invalid content type length", errCorrupt)
	}

	body := data[headerSize+ctLen:]
	if flags&flagCompressed != 0 {
		var err error
		body, err = c.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", errCorrupt, err)
		}
	}

	return &Entry{
		ContentType: string(data[headerSize : headerSize+ctLen]),
		Body:        body,
		StoredAt:    time.Unix(0, storedAt),
		Size:        int64(len(data)),
	}, nil
}
