// Package quest keeps the career quest ledger: a fixed set of one-shot
// achievement flags with XP rewards, persisted per owner through a Backend
// and announced through a Publisher.
package quest

import "errors"

type ID string

const (
	IDResume  ID = "resume"
	IDRoadmap ID = "roadmap"
	IDSkill   ID = "skill"
	IDJob     ID = "job"
)

func (id ID) Valid() bool {
	_, ok := definitionIndex(id)
	return ok
}

type Quest struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	XP        int    `json:"xp"`
	Completed bool   `json:"completed"`
}

// definitions is the fixed quest membership. XP values never change after
// definition; ids are never renamed because snapshots are keyed on them.
var definitions = []Quest{
	{ID: IDResume, Title: "Upload Resume", XP: 500},
	{ID: IDRoadmap, Title: "Generate Roadmap", XP: 800},
	{ID: IDSkill, Title: "Analyze Skills", XP: 400},
	{ID: IDJob, Title: "Find Jobs", XP: 300},
}

var (
	// ErrUnavailable marks a backend that cannot persist in the current
	// environment. The store degrades to defaults instead of failing.
	ErrUnavailable = errors.New("quest: persistence unavailable")

	// ErrUnknownQuest is returned by lookups on ids outside the fixed set.
	ErrUnknownQuest = errors.New("quest: unknown quest")
)

// Defaults returns a fresh copy of the default ledger, all incomplete.
func Defaults() []Quest {
	out := make([]Quest, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for id.
func Lookup(id ID) (Quest, error) {
	i, ok := definitionIndex(id)
	if !ok {
		return Quest{}, ErrUnknownQuest
	}
	return definitions[i], nil
}

func definitionIndex(id ID) (int, bool) {
	for i := range definitions {
		if definitions[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// normalize maps a stored snapshot onto the fixed membership: order, titles
// and XP come from the definitions, only completion flags come from storage.
func normalize(stored []Quest) []Quest {
	out := Defaults()
	for _, q := range stored {
		if i, ok := definitionIndex(q.ID); ok && q.Completed {
			out[i].Completed = true
		}
	}
	return out
}

// SumXP adds the XP of every completed quest.
func SumXP(quests []Quest) int {
	total := 0
	for _, q := range quests {
		if q.Completed {
			total += q.XP
		}
	}
	return total
}
