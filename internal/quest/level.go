package quest

// Rank is a named XP threshold on the level ladder.
type Rank struct {
	Name  string `json:"rank"`
	MinXP int    `json:"minXP"`
}

var ladder = []Rank{
	{Name: "Beginner", MinXP: 0},
	{Name: "Explorer", MinXP: 500},
	{Name: "Achiever", MinXP: 1500},
	{Name: "Expert", MinXP: 3000},
	{Name: "Master", MinXP: 5000},
}

// Ranks returns a copy of the level ladder, lowest first.
func Ranks() []Rank {
	out := make([]Rank, len(ladder))
	copy(out, ladder)
	return out
}

// Progress describes where a total XP value sits on the ladder.
type Progress struct {
	Rank      string  `json:"rank"`
	MinXP     int     `json:"minXP"`
	NextRank  string  `json:"nextRank,omitempty"`
	NextMinXP int     `json:"nextMinXP,omitempty"`
	ToNext    int     `json:"toNext"`
	Percent   float64 `json:"percent"`
	Max       bool    `json:"max"`
}

// LevelFor returns the highest rank whose threshold totalXP has reached.
func LevelFor(totalXP int) Progress {
	idx := 0
	for i := range ladder {
		if totalXP >= ladder[i].MinXP {
			idx = i
		}
	}
	cur := ladder[idx]
	if idx == len(ladder)-1 {
		return Progress{Rank: cur.Name, MinXP: cur.MinXP, Percent: 100, Max: true}
	}

	next := ladder[idx+1]
	span := next.MinXP - cur.MinXP
	gained := totalXP - cur.MinXP
	if gained < 0 {
		gained = 0
	}
	return Progress{
		Rank:      cur.Name,
		MinXP:     cur.MinXP,
		NextRank:  next.Name,
		NextMinXP: next.MinXP,
		ToNext:    next.MinXP - totalXP,
		Percent:   float64(gained) / float64(span) * 100,
	}
}
