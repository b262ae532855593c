package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/id"
)

// resolveItem accepts a full item id or a unique prefix of one.
func resolveItem(snap *board.Snapshot, ref string) (string, error) {
	items := snap.Items()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	itemID, err := id.MatchPrefix(ref, ids)
	if err != nil {
		return "", exitError(ExitUsage, fmt.Errorf("item: %w", err))
	}
	return itemID, nil
}

// resolveBucket accepts a bucket id, a case-insensitive label, or a
// unique id prefix, in that order.
func resolveBucket(snap *board.Snapshot, ref string) (string, error) {
	buckets := snap.Buckets()
	ids := make([]string, len(buckets))
	var byLabel []string
	for i, b := range buckets {
		if b.ID == ref {
			return b.ID, nil
		}
		ids[i] = b.ID
		if strings.EqualFold(adapter.Label(b), strings.TrimSpace(ref)) {
			byLabel = append(byLabel, b.ID)
		}
	}
	switch len(byLabel) {
	case 1:
		return byLabel[0], nil
	case 0:
	default:
		return "", exitError(ExitUsage, fmt.Errorf("bucket: label %q matches %d buckets, use the id", ref, len(byLabel)))
	}
	bucketID, err := id.MatchPrefix(ref, ids)
	if err != nil {
		return "", exitError(ExitUsage, fmt.Errorf("bucket: %w", err))
	}
	return bucketID, nil
}

func parseIndex(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, exitError(ExitUsage, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, s))
	}
	return n, nil
}
