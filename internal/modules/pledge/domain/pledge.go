package domain

// PledgeEntry is one labelled cell of the leaderboard table.
type PledgeEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Board is today's pledges plus the announcement of the next ones.
type Board struct {
	Entries []PledgeEntry
	Next    string
}
