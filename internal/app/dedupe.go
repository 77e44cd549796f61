package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"seminargo/internal/domain"
)

// Deduper finds groups of active records sharing a natural key and resolves
// each group to a single survivor. Cleanup only ever trashes (soft delete);
// it is reversible by design.
type Deduper struct {
	repo domain.HotelRepository
}

func NewDeduper(repo domain.HotelRepository) *Deduper { return &Deduper{repo: repo} }

func (d *Deduper) FindDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error) {
	var groups []domain.DuplicateGroup
	seen := make(map[int64]bool)

	extIDs, err := d.repo.DuplicateExternalIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range extIDs {
		recs, err := d.repo.ListByExternalID(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(recs) < 2 {
			continue
		}
		g := rankGroup("external_id", id, recs)
		seen[g.Keep.RowID] = true
		for _, r := range g.Remove {
			seen[r.RowID] = true
		}
		groups = append(groups, g)
	}

	refCodes, err := d.repo.DuplicateReferenceCodes(ctx)
	if err != nil {
		return nil, err
	}
	for _, code := range refCodes {
		recs, err := d.repo.ListByReferenceCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(recs) < 2 || allSeen(recs, seen) {
			continue // already resolved via external id
		}
		groups = append(groups, rankGroup("reference_code", code, recs))
	}

	return groups, nil
}

func (d *Deduper) Cleanup(ctx context.Context, dryRun bool) (domain.CleanupReport, error) {
	groups, err := d.FindDuplicates(ctx)
	if err != nil {
		return domain.CleanupReport{}, err
	}

	rep := domain.CleanupReport{DryRun: dryRun}
	for _, g := range groups {
		rep.Groups++
		rep.Kept++
		for _, r := range g.Remove {
			action := "would trash"
			if !dryRun {
				if err := d.repo.Trash(ctx, r.RowID); err != nil {
					rep.Details = append(rep.Details, fmt.Sprintf(
						"%s=%s: trash row %d failed: %v", g.KeyType, g.Key, r.RowID, err))
					continue
				}
				action = "trashed"
			}
			rep.Trashed++
			rep.Details = append(rep.Details, fmt.Sprintf(
				"%s=%s: keep row %d %q (score %d), %s row %d %q (score %d)",
				g.KeyType, g.Key, g.Keep.RowID, g.Keep.Title, g.Keep.Score,
				action, r.RowID, r.Title, r.Score))
		}
	}
	return rep, nil
}

// rankGroup orders members by completeness score, then recency, then row id
// for determinism; the top member survives.
func rankGroup(keyType, key string, recs []domain.HotelRecord) domain.DuplicateGroup {
	members := make([]domain.HotelSummary, len(recs))
	for i, r := range recs {
		members[i] = domain.HotelSummary{
			RowID:         r.RowID,
			ExternalID:    r.ExternalID,
			ReferenceCode: r.ReferenceCode,
			Title:         r.Title,
			Score:         completenessScore(r),
			UpdatedAt:     r.UpdatedAt,
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		if !members[i].UpdatedAt.Equal(members[j].UpdatedAt) {
			return members[i].UpdatedAt.After(members[j].UpdatedAt)
		}
		return members[i].RowID < members[j].RowID
	})
	return domain.DuplicateGroup{KeyType: keyType, Key: key, Keep: members[0], Remove: members[1:]}
}

// completenessScore counts populated fields; a usable primary image weighs
// extra.
func completenessScore(r domain.HotelRecord) int {
	score := 0
	for _, v := range r.Fields() {
		if fieldPopulated(v) {
			score++
		}
	}
	if hasMedia(r.Media) {
		score += 5
	}
	return score
}

func fieldPopulated(v any) bool {
	switch t := v.(type) {
	case string:
		return t != "" && t != "{}" && t != "[]" && t != "null"
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return v != nil
	}
}

func hasMedia(blob []byte) bool {
	var media []json.RawMessage
	if err := json.Unmarshal(blob, &media); err != nil {
		return false
	}
	return len(media) > 0
}

func allSeen(recs []domain.HotelRecord, seen map[int64]bool) bool {
	for _, r := range recs {
		if !seen[r.RowID] {
			return false
		}
	}
	return true
}
