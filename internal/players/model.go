package players

type Player struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsReady    bool       `json:"isReady"`
	ItemsFound int        `json:"itemsFound"`
	ItemTimes  []*float64 `json:"itemTimes"`           // indexed by item; nil until recorded
	TotalTime  *float64   `json:"totalTime,omitempty"` // mean of recorded ItemTimes
}

// Clone returns a deep copy safe to hand to readers outside the engine.
func (p *Player) Clone() Player {
	cp := *p
	cp.ItemTimes = make([]*float64, len(p.ItemTimes))
	for i, t := range p.ItemTimes {
		if t != nil {
			v := *t
			cp.ItemTimes[i] = &v
		}
	}
	if p.TotalTime != nil {
		v := *p.TotalTime
		cp.TotalTime = &v
	}
	return cp
}

// RecordItemTime stores seconds at index and recomputes TotalTime as the
// mean of every recorded entry.
func (p *Player) RecordItemTime(index int, seconds float64) {
	for len(p.ItemTimes) <= index {
		p.ItemTimes = append(p.ItemTimes, nil)
	}
	v := seconds
	p.ItemTimes[index] = &v
	p.ItemsFound++

	var sum float64
	var n int
	for _, t := range p.ItemTimes {
		if t != nil {
			sum += *t
			n++
		}
	}
	mean := sum / float64(n)
	p.TotalTime = &mean
}
