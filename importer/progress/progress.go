package progress

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Reporter receives progress heartbeats and row-level errors. Nothing it does halts a run.
type Reporter interface {
	Report(percent int, message string)
	LogError(category string, message string)
}

// Category is one kind of row error with the natural ids it was reported for, in report order
type Category struct {
	Name     string
	Messages []string
}

// Log reports through logrus and keeps every error grouped by category for the end of run summary
type Log struct {
	sync.Mutex
	fields     logrus.Fields
	order      []string
	categories map[string]*Category
}

func NewLog(fields logrus.Fields) *Log {
	return &Log{fields: fields, categories: make(map[string]*Category)}
}

func (l *Log) Report(percent int, message string) {
	logrus.WithFields(l.fields).WithField("percent", percent).Infoln(message)
}

func (l *Log) LogError(category string, message string) {
	l.Lock()
	defer l.Unlock()
	c, exists := l.categories[category]
	if !exists {
		c = &Category{Name: category}
		l.categories[category] = c
		l.order = append(l.order, category)
	}
	c.Messages = append(c.Messages, message)
	logrus.WithFields(l.fields).WithFields(logrus.Fields{"category": category, "id": message}).Debugln("row skipped")
}

// Errors returns the categories in first-seen order
func (l *Log) Errors() []Category {
	l.Lock()
	defer l.Unlock()
	out := make([]Category, 0, len(l.order))
	for _, name := range l.order {
		c := l.categories[name]
		out = append(out, Category{Name: c.Name, Messages: append([]string(nil), c.Messages...)})
	}
	return out
}

// Count returns the number of errors logged under category
func (l *Log) Count(category string) int {
	l.Lock()
	defer l.Unlock()
	if c, ok := l.categories[category]; ok {
		return len(c.Messages)
	}
	return 0
}

// Summary lists each category once with its distinct ids; repeated ids are counted
func (l *Log) Summary() string {
	var buf bytes.Buffer
	for _, c := range l.Errors() {
		seen := make(map[string]int)
		var distinct []string
		for _, m := range c.Messages {
			if seen[m] == 0 {
				distinct = append(distinct, m)
			}
			seen[m]++
		}
		parts := make([]string, len(distinct))
		for idx, m := range distinct {
			if seen[m] > 1 {
				parts[idx] = fmt.Sprintf("%s (x%d)", m, seen[m])
			} else {
				parts[idx] = m
			}
		}
		buf.WriteString(fmt.Sprintf("%s (%d): %s\n", c.Name, len(c.Messages), strings.Join(parts, ", ")))
	}
	return buf.String()
}
