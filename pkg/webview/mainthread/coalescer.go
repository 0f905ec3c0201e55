package mainthread

import "sync"

// Coalescer merges bursts of same-key tasks into one posted task that runs
// the most recent closure for that key.
type Coalescer struct {
	mu        sync.Mutex
	latest    map[string]*pending
	post      func(func()) error
	destroyed bool
}

// pending is the work waiting under one key. inflight counts post calls that
// have not returned yet.
type pending struct {
	fn        func()
	scheduled bool
	inflight  int
}

// NewCoalescer creates a coalescer that schedules through post, typically Loop.Post.
func NewCoalescer(post func(func()) error) *Coalescer {
	if post == nil {
		panic("mainthread.NewCoalescer: post function cannot be nil")
	}
	return &Coalescer{
		latest: make(map[string]*pending),
		post:   post,
	}
}

// Post schedules fn under key. If a task for key is already scheduled, fn
// replaces its closure and nothing new is scheduled. A failed post only
// releases the key when no other post for it succeeded meanwhile.
func (c *Coalescer) Post(key string, fn func()) error {
	if fn == nil || key == "" {
		return nil
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	p := c.latest[key]
	if p == nil {
		p = &pending{}
		c.latest[key] = p
	}
	p.fn = fn
	if p.scheduled {
		c.mu.Unlock()
		return nil
	}
	p.inflight++
	c.mu.Unlock()

	err := c.post(func() { c.run(key, p) })

	c.mu.Lock()
	defer c.mu.Unlock()
	p.inflight--
	if err != nil {
		if c.latest[key] == p && !p.scheduled && p.inflight == 0 {
			delete(c.latest, key)
		}
		return err
	}
	p.scheduled = true
	return nil
}

func (c *Coalescer) run(key string, p *pending) {
	c.mu.Lock()
	if c.latest[key] != p {
		c.mu.Unlock()
		return
	}
	delete(c.latest, key)
	fn := p.fn
	p.fn = nil
	destroyed := c.destroyed
	c.mu.Unlock()

	if fn != nil && !destroyed {
		fn()
	}
}

// Pending returns the number of keys waiting to run.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.latest)
}

// Destroy drops pending work; later posts are ignored.
func (c *Coalescer) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.latest = map[string]*pending{}
	c.mu.Unlock()
}
