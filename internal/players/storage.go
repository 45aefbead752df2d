package players

// Roster is the insertion-ordered set of players in a round, unique by id.
// It is not safe for concurrent use; the round engine serializes access.
type Roster struct {
	players []*Player
}

func NewRoster() *Roster {
	return &Roster{}
}

// Add appends a player with the given id unless one already exists, in
// which case the existing player is returned and added is false.
func (r *Roster) Add(id string, name string) (player *Player, added bool) {
	if p := r.Get(id); p != nil {
		return p, false
	}
	player = &Player{ID: id, Name: name, ItemTimes: []*float64{}}
	r.players = append(r.players, player)
	return player, true
}

func (r *Roster) Get(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Roster) Remove(id string) bool {
	for i, p := range r.players {
		if p.ID == id {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Roster) SetReady(id string, isReady bool) *Player {
	if p := r.Get(id); p != nil {
		p.IsReady = isReady
		return p
	}
	return nil
}

func (r *Roster) AllReady() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

func (r *Roster) ReadyCount() int {
	n := 0
	for _, p := range r.players {
		if p.IsReady {
			n++
		}
	}
	return n
}

func (r *Roster) Count() int {
	return len(r.players)
}

// List returns deep copies in join order.
func (r *Roster) List() []Player {
	list := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p.Clone())
	}
	return list
}
