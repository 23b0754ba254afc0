package taxonomy

import "sort"

// computeDiff compares two versions' node sets, matching by canonical path.
// Migration records spanning the two versions identify moved nodes; without
// them a move would be indistinguishable from a remove plus an add.
//
// The migrations argument must already be oriented from the `from` side to
// the `to` side (see orientMigrations), which makes the result symmetric:
// computeDiff(A,B) and computeDiff(B,A) are inverses.
func computeDiff(from, to int, fromNodes, toNodes []Node, migrations []MigrationRecord) *Diff {
	diff := &Diff{
		From:     from,
		To:       to,
		Added:    []Path{},
		Removed:  []Path{},
		Moved:    []Moved{},
		Modified: []Modified{},
	}

	toByKey := make(map[string]Node, len(toNodes))
	for _, n := range toNodes {
		toByKey[n.Path.Key()] = n
	}

	// Replay migrations to project each from-side path onto the to side.
	// projected maps the original from-side key to its current path; current
	// tracks the reverse lookup as chains of moves compose.
	projected := make(map[string]Path, len(fromNodes))
	current := make(map[string]string, len(fromNodes))
	for _, n := range fromNodes {
		key := n.Path.Key()
		projected[key] = n.Path
		current[key] = key
	}

	for _, m := range migrations {
		fromKey := m.FromPath.Key()
		origin, ok := current[fromKey]
		if !ok {
			continue
		}
		delete(current, fromKey)
		projected[origin] = m.ToPath
		current[m.ToPath.Key()] = origin
	}

	matched := make(map[string]bool, len(fromNodes))

	for _, n := range fromNodes {
		key := n.Path.Key()
		final := projected[key]
		target, exists := toByKey[final.Key()]

		switch {
		case !exists:
			diff.Removed = append(diff.Removed, n.Path)
		case !final.Equal(n.Path):
			matched[final.Key()] = true
			diff.Moved = append(diff.Moved, Moved{FromPath: n.Path, ToPath: final})
		default:
			matched[key] = true
			if n.Confidence != target.Confidence {
				diff.Modified = append(diff.Modified, Modified{
					Path:           n.Path,
					FromConfidence: n.Confidence,
					ToConfidence:   target.Confidence,
				})
			}
		}
	}

	for _, n := range toNodes {
		if !matched[n.Path.Key()] {
			diff.Added = append(diff.Added, n.Path)
		}
	}

	sortPaths(diff.Added)
	sortPaths(diff.Removed)
	sort.Slice(diff.Moved, func(i, j int) bool {
		return diff.Moved[i].FromPath.Key() < diff.Moved[j].FromPath.Key()
	})
	sort.Slice(diff.Modified, func(i, j int) bool {
		return diff.Modified[i].Path.Key() < diff.Modified[j].Path.Key()
	})

	return diff
}

// orientMigrations orders records so replay walks from the `from` version
// toward the `to` version. Diffing backwards (from > to) inverts each record
// and replays newest first.
func orientMigrations(from, to int, records []MigrationRecord) []MigrationRecord {
	oriented := make([]MigrationRecord, 0, len(records))

	if from < to {
		sort.Slice(records, func(i, j int) bool {
			if records[i].ToVersion != records[j].ToVersion {
				return records[i].ToVersion < records[j].ToVersion
			}
			return records[i].ID < records[j].ID
		})
		return append(oriented, records...)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ToVersion != records[j].ToVersion {
			return records[i].ToVersion > records[j].ToVersion
		}
		return records[i].ID > records[j].ID
	})
	for _, m := range records {
		oriented = append(oriented, MigrationRecord{
			ID:          m.ID,
			FromVersion: m.ToVersion,
			ToVersion:   m.FromVersion,
			FromPath:    m.ToPath,
			ToPath:      m.FromPath,
			Rationale:   m.Rationale,
			CreatedAt:   m.CreatedAt,
		})
	}
	return oriented
}
