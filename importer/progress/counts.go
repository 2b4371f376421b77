package progress

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Counts is the outcome of one kind's run.
// Processed = Imported + SkippedDuplicate + SkippedInvalid.
type Counts struct {
	Kind             string
	Processed        int
	Imported         int
	SkippedDuplicate int
	SkippedInvalid   int
	Linked           int
}

func (c Counts) String() string {
	return fmt.Sprintf("%s: processed %d, imported %d, skipped as duplicate %d, skipped as invalid %d, linked %d",
		c.Kind, c.Processed, c.Imported, c.SkippedDuplicate, c.SkippedInvalid, c.Linked)
}

// Counter is a concurrency safe count that only moves forward
type Counter struct {
	sync.RWMutex
	n int
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Read() int {
	c.RLock()
	defer c.RUnlock()
	return c.n
}

func (c *Counter) Set(n int) {
	c.Lock()
	defer c.Unlock()
	c.n = n
}

// Update moves the count to n, rejecting a decrease
func (c *Counter) Update(n int) error {
	c.Lock()
	defer c.Unlock()
	cur := c.n
	if n > cur {
		c.n = n
		logrus.WithField("processed", n).Debugln("update progress")
	} else if n < cur {
		return fmt.Errorf("unexpected progress, new: %d, current: %d", n, cur)
	}
	return nil
}

// Percent of total reached by the counter, 0 when total is unknown
func (c *Counter) Percent(total int) int {
	if total <= 0 {
		return 0
	}
	p := c.Read() * 100 / total
	if p > 100 {
		return 100
	}
	return p
}
