package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Chunker pulls groups into chunks of at most size groups. Each chunk is a fresh slice,
// and the cursor only moves forward: Offset is the number of groups handed out so far.
type Chunker struct {
	it      Iterator
	size    int
	offset  int
	records int
	done    bool
}

func NewChunker(it Iterator, size int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be a positive number")
	}
	return &Chunker{it: it, size: size}, nil
}

// Next returns the next chunk. The final chunk may be partial; io.EOF follows it.
func (c *Chunker) Next() ([]*Group, error) {
	if c.done {
		return nil, io.EOF
	}
	chunk := make([]*Group, 0, c.size)
	for len(chunk) < c.size {
		group, err := c.it.Next()
		if errors.Is(err, io.EOF) {
			c.done = true
			break
		} else if err != nil {
			return nil, err
		}
		chunk = append(chunk, group)
		c.records += len(group.Records)
	}
	c.offset += len(chunk)
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	logrus.WithFields(logrus.Fields{
		"groups": len(chunk),
		"offset": c.offset,
	}).Debugln("chunker send chunk")
	return chunk, nil
}

// Offset is the number of groups returned so far
func (c *Chunker) Offset() int {
	return c.offset
}

// Records is the number of source rows returned so far
func (c *Chunker) Records() int {
	return c.records
}
