/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package clock provides an injectable time source so deadline math can be
// driven deterministically from tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the single time source for all deadline arithmetic.
type Clock interface {
	Now() time.Time
	NowMs() int64
	NowSeconds() float64
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }

func (systemClock) NowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// System returns the wall-clock implementation.
func System() Clock {
	return systemClock{}
}

// Fake is a mutable clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *Fake) NowMs() int64 {
	return f.Now().UnixMilli()
}

func (f *Fake) NowSeconds() float64 {
	return float64(f.Now().UnixNano()) / float64(time.Second)
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = t
}
