package render

import (
	"sync"
	"time"
)

// TickerFunc starts a ticker and returns its channel and a stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

// StdTicker is the TickerFunc backed by time.NewTicker.
func StdTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// animation is the handle of one running count-up
type animation struct {
	cancel chan struct{}
	done   chan struct{}
}

// Animator counts a score up from zero in fixed steps. At most one
// animation is live; starting another cancels the previous one.
type Animator struct {
	mu        sync.Mutex
	steps     int
	interval  time.Duration
	newTicker TickerFunc
	current   *animation
}

// NewAnimator creates an animator. A nil ticker uses StdTicker.
func NewAnimator(steps int, interval time.Duration, ticker TickerFunc) *Animator {
	if steps < 1 {
		steps = 1
	}
	if ticker == nil {
		ticker = StdTicker
	}
	return &Animator{steps: steps, interval: interval, newTicker: ticker}
}

// Start cancels any live animation and animates towards target.
// frame is called for every step and settled once after the last one.
// Both run with the animator lock held and must not call back into it.
func (a *Animator) Start(target int, frame func(value int), settled func(value int)) {
	a.mu.Lock()
	a.cancelLocked()
	anim := &animation{cancel: make(chan struct{}), done: make(chan struct{})}
	a.current = anim
	a.mu.Unlock()

	go a.run(anim, target, frame, settled)
}

func (a *Animator) run(anim *animation, target int, frame func(int), settled func(int)) {
	defer close(anim.done)

	var tick <-chan time.Time
	if a.interval > 0 {
		c, stop := a.newTicker(a.interval)
		defer stop()
		tick = c
	}

	for i := 1; i <= a.steps; i++ {
		if tick != nil {
			select {
			case <-tick:
			case <-anim.cancel:
				return
			}
		}

		a.mu.Lock()
		if a.current != anim {
			a.mu.Unlock()
			return
		}
		frame(frameValue(target, i, a.steps))
		if i == a.steps {
			a.current = nil
			if settled != nil {
				settled(target)
			}
		}
		a.mu.Unlock()
	}
}

// Cancel stops the live animation, if any. No frame of it is delivered
// after Cancel returns.
func (a *Animator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

func (a *Animator) cancelLocked() {
	if a.current != nil {
		close(a.current.cancel)
		a.current = nil
	}
}

// Active reports whether an animation is live
func (a *Animator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// Wait blocks until the live animation settles or is cancelled.
func (a *Animator) Wait() {
	a.mu.Lock()
	anim := a.current
	a.mu.Unlock()
	if anim != nil {
		<-anim.done
	}
}
