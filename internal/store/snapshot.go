package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/ledger-engine/internal/model"
)

// Persisted keys. Values are JSON arrays, the same layout the browser UI
// kept in local storage.
const (
	KeyParties      = "profiles"
	KeyTransactions = "transactions"
	KeyListings     = "listings"

	// legacyLoansPrefix marks the per-party loan cache older UI builds wrote
	// next to the profile. The embedded Party.Loans map replaced it.
	legacyLoansPrefix = "loans_"
)

// Snapshot is the full persisted state.
type Snapshot struct {
	Parties      []model.Party
	Transactions []model.Transaction
	Listings     []model.Listing

	// Migrated lists trader ids whose loan map was recovered from a legacy
	// loans_<id> key during Load.
	Migrated []string
}

// Empty reports whether nothing has ever been persisted.
func (s *Snapshot) Empty() bool {
	return len(s.Parties) == 0 && len(s.Transactions) == 0 && len(s.Listings) == 0
}

// Load reads every persisted key. Missing keys load as empty collections.
// Legacy loans_<id> entries fill in a trader's loan map when the embedded
// map is empty and are deleted afterwards, so the duplicate representation
// never comes back.
func Load(ctx context.Context, st Store) (Snapshot, error) {
	var snap Snapshot
	if err := getJSON(ctx, st, KeyParties, &snap.Parties); err != nil {
		return Snapshot{}, err
	}
	if err := getJSON(ctx, st, KeyTransactions, &snap.Transactions); err != nil {
		return Snapshot{}, err
	}
	if err := getJSON(ctx, st, KeyListings, &snap.Listings); err != nil {
		return Snapshot{}, err
	}

	legacy, err := st.Keys(ctx, legacyLoansPrefix)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list legacy loan keys: %w", err)
	}
	if len(legacy) == 0 {
		return snap, nil
	}

	byID := make(map[string]int, len(snap.Parties))
	for i, p := range snap.Parties {
		byID[p.ID] = i
	}
	for _, key := range legacy {
		partyID := strings.TrimPrefix(key, legacyLoansPrefix)
		i, ok := byID[partyID]
		if !ok || !snap.Parties[i].IsTrader() {
			continue
		}
		var loans map[string]decimal.Decimal
		if err := getJSON(ctx, st, key, &loans); err != nil {
			return Snapshot{}, err
		}
		if len(snap.Parties[i].Loans) == 0 {
			pruned := make(map[string]decimal.Decimal, len(loans))
			for fid, amt := range loans {
				if amt.IsPositive() {
					pruned[fid] = amt
				}
			}
			snap.Parties[i].Loans = pruned
			snap.Migrated = append(snap.Migrated, partyID)
		}
	}
	if len(snap.Migrated) > 0 {
		if err := SaveParties(ctx, st, snap.Parties); err != nil {
			return Snapshot{}, err
		}
	}
	for _, key := range legacy {
		if err := st.Delete(ctx, key); err != nil {
			return Snapshot{}, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return snap, nil
}

// Save writes every collection in the snapshot.
func Save(ctx context.Context, st Store, snap Snapshot) error {
	if err := SaveParties(ctx, st, snap.Parties); err != nil {
		return err
	}
	if err := SaveTransactions(ctx, st, snap.Transactions); err != nil {
		return err
	}
	return SaveListings(ctx, st, snap.Listings)
}

// SaveParties replaces the persisted party array.
func SaveParties(ctx context.Context, st Store, parties []model.Party) error {
	return setJSON(ctx, st, KeyParties, nonNil(parties))
}

// SaveTransactions replaces the persisted transaction array.
func SaveTransactions(ctx context.Context, st Store, txs []model.Transaction) error {
	return setJSON(ctx, st, KeyTransactions, nonNil(txs))
}

// SaveListings replaces the persisted listing array.
func SaveListings(ctx context.Context, st Store, listings []model.Listing) error {
	return setJSON(ctx, st, KeyListings, nonNil(listings))
}

func getJSON(ctx context.Context, st Store, key string, dst any) error {
	data, err := st.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func setJSON(ctx context.Context, st Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := st.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// nonNil makes empty collections persist as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
