// Package fake provides scripted oracles for tests.
package fake

import (
	"context"
	"sync"
)

// Checker replays scripted completion answers in order; when the script is
// exhausted it keeps returning the last answer (or true when unscripted).
type Checker struct {
	mu      sync.Mutex
	answers []bool
	next    int
	calls   []string
	err     error
}

func NewChecker(answers ...bool) *Checker {
	return &Checker{answers: answers}
}

// FailWith makes subsequent Check calls return err.
func (c *Checker) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Calls returns the texts Check was asked about.
func (c *Checker) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *Checker) Check(ctx context.Context, text string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	c.calls = append(c.calls, text)
	if len(c.answers) == 0 {
		return true, nil
	}
	i := c.next
	if i >= len(c.answers) {
		i = len(c.answers) - 1
	} else {
		c.next++
	}
	return c.answers[i], nil
}

// Validator replays scripted validation answers the same way.
type Validator struct {
	mu      sync.Mutex
	answers []bool
	next    int
	calls   int
	err     error
}

func NewValidator(answers ...bool) *Validator {
	return &Validator{answers: answers}
}

// FailWith makes subsequent Validate calls return err.
func (v *Validator) FailWith(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

// Calls reports how many Validate calls completed.
func (v *Validator) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func (v *Validator) Validate(ctx context.Context, userText, aiText string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return false, v.err
	}
	v.calls++
	if len(v.answers) == 0 {
		return true, nil
	}
	i := v.next
	if i >= len(v.answers) {
		i = len(v.answers) - 1
	} else {
		v.next++
	}
	return v.answers[i], nil
}
