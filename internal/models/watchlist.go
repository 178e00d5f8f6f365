package models

// WatchlistEntry is a monitored market participant.
type WatchlistEntry struct {
	// Name is the upper-cased match key.
	Name        string
	DisplayName string
	Category    string
	Priority    int
	IsActive    bool
}

// MatchedDeal joins a deal with the watchlist entry that matched it.
// It only lives for the duration of a run.
type MatchedDeal struct {
	Deal  Deal
	Entry WatchlistEntry
}

// Investor returns the display name of the matched participant.
func (m MatchedDeal) Investor() string {
	if m.Entry.DisplayName != "" {
		return m.Entry.DisplayName
	}
	return m.Entry.Name
}

// Priority is the priority of the matched entry.
func (m MatchedDeal) Priority() int {
	return m.Entry.Priority
}
