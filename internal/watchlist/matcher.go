package watchlist

import (
	"sort"
	"strings"

	"bulk-deal-tracker/internal/models"
	"go.uber.org/zap"
)

// Matcher flags deals whose participant name contains a watchlist name.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a new Matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger.Named("watchlist")}
}

// Match scans batches in order against the active entries. A record matches
// an entry when its upper-cased participant name contains the entry name.
// Every (record, entry) pair is reported, so one record can match several
// entries. The result is sorted by descending priority, keeping discovery
// order (batch, then watchlist entry, then record) among equal priorities.
func (m *Matcher) Match(batches []models.Batch, entries []models.WatchlistEntry) []models.MatchedDeal {
	keys := m.activeKeys(entries)
	if len(keys) == 0 {
		m.logger.Warn("No monitored investors configured, nothing to match")
		return nil
	}

	var matches []models.MatchedDeal
	for _, b := range batches {
		if !hasParticipants(b) {
			m.logger.Info("Skipping feed without participant names",
				zap.String("feed", b.Feed.Name()),
				zap.Int("records", b.Len()))
			continue
		}

		found := 0
		for _, k := range keys {
			for _, d := range b.Records {
				name := strings.ToUpper(d.ParticipantName)
				if name != "" && strings.Contains(name, k.key) {
					matches = append(matches, models.MatchedDeal{Deal: d, Entry: k.entry})
					found++
				}
			}
		}
		if found > 0 {
			m.logger.Info("Watchlist matches found", zap.String("feed", b.Feed.Name()), zap.Int("matches", found))
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches
}

type matchKey struct {
	key   string
	entry models.WatchlistEntry
}

func (m *Matcher) activeKeys(entries []models.WatchlistEntry) []matchKey {
	keys := make([]matchKey, 0, len(entries))
	for _, e := range entries {
		if !e.IsActive {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(e.Name))
		if key == "" {
			// An empty key would match every named participant.
			m.logger.Warn("Ignoring watchlist entry with a blank name", zap.String("display_name", e.DisplayName))
			continue
		}
		keys = append(keys, matchKey{key: key, entry: e})
	}
	return keys
}

// hasParticipants reports whether any record of b can be matched at all.
func hasParticipants(b models.Batch) bool {
	if !b.HasParticipants {
		return false
	}
	for _, d := range b.Records {
		if d.ParticipantName != "" {
			return true
		}
	}
	return false
}
