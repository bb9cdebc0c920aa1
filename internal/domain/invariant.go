package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// maxScanNodes caps the deep scan so a pathological or hostile state object
// cannot stall the engine.
const maxScanNodes = 20000

// InvariantReport is the outcome of the deep card-id scan over a snapshot.
// It is advisory: the engine logs and flags corruption but never blocks the
// triggering move on it.
type InvariantReport struct {
	OK           bool
	Reason       Reason
	Total        int
	Expected     int
	UnknownIDs   []string
	DuplicateIDs []string
	MissingIDs   []string
	Hash         string
	Truncated    bool
}

// ZoneCount is one row of the zone-by-zone breakdown logged with
// conservation findings, used to localize which mutation introduced drift.
type ZoneCount struct {
	Zone  string
	Count int
}

// ConservationReport is the outcome of the shallow per-zone conservation
// check run after every accepted apply.
type ConservationReport struct {
	OK           bool
	Reason       Reason
	Total        int
	Zones        []ZoneCount
	UnknownIDs   []string
	DuplicateIDs []string
	MissingIDs   []string
}

// ValidateInvariant walks the full state graph collecting card ids from
// id-bearing keys, then checks the multiset against the expected deck:
// every id present exactly once, none unrecognized. The walk runs over the
// JSON-decoded form of the state with a node cap, and captures each object's
// id at most once so an id field is never double-counted as a string leaf.
//
// expected may be nil, in which case ids are only checked for well-formedness
// and the total against the schema-derived deck size.
func ValidateInvariant(st *GameState, expected map[string]struct{}) InvariantReport {
	report := InvariantReport{Hash: SnapshotHash(st)}
	if st == nil {
		report.Reason = ReasonInvariantCheckFailed
		return report
	}
	schema := DetectSchema(st)
	report.Expected = st.ExpectedDeckTotal(schema)
	if expected != nil {
		report.Expected = len(expected)
	}

	data, err := json.Marshal(st)
	if err != nil {
		report.Reason = ReasonInvariantCheckFailed
		return report
	}
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		report.Reason = ReasonInvariantCheckFailed
		return report
	}

	seen := map[string]int{}
	nodes := 0
	var walk func(node any)
	walk = func(node any) {
		if nodes >= maxScanNodes {
			report.Truncated = true
			return
		}
		nodes++
		switch v := node.(type) {
		case map[string]any:
			if id, ok := v["id"].(string); ok {
				seen[id]++
			}
			for key, child := range v {
				if key == "id" {
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(root)

	report.Total = 0
	for id, n := range seen {
		report.Total += n
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
		if !knownID(id, expected) {
			report.UnknownIDs = append(report.UnknownIDs, id)
		}
	}
	for id := range expected {
		if seen[id] == 0 {
			report.MissingIDs = append(report.MissingIDs, id)
		}
	}
	sortIDs(report.DuplicateIDs, report.UnknownIDs, report.MissingIDs)

	switch {
	case len(report.UnknownIDs) > 0:
		report.Reason = ReasonUnknownCardIDs
	case len(report.DuplicateIDs) > 0:
		report.Reason = ReasonDuplicateCardIDs
	case len(report.MissingIDs) > 0 || report.Total < report.Expected:
		report.Reason = ReasonMissingCards
	default:
		report.OK = true
	}
	return report
}

// CheckConservation runs the duplicate/missing logic restricted to the known
// zone fields, producing the per-zone count table. It is cheap enough to run
// after every accepted apply.
func CheckConservation(st *GameState, expected map[string]struct{}) ConservationReport {
	report := ConservationReport{}
	seen := map[string]int{}
	for _, zp := range zonePiles(st) {
		report.Zones = append(report.Zones, ZoneCount{Zone: zp.name, Count: len(zp.pile)})
		for _, card := range zp.pile {
			report.Total++
			seen[card.ID]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
		if !knownID(id, expected) {
			report.UnknownIDs = append(report.UnknownIDs, id)
		}
	}
	for id := range expected {
		if seen[id] == 0 {
			report.MissingIDs = append(report.MissingIDs, id)
		}
	}
	sortIDs(report.DuplicateIDs, report.UnknownIDs, report.MissingIDs)

	switch {
	case len(report.UnknownIDs) > 0:
		report.Reason = ReasonUnknownCardIDs
	case len(report.DuplicateIDs) > 0:
		report.Reason = ReasonDuplicateCardIDs
	case len(report.MissingIDs) > 0:
		report.Reason = ReasonMissingCards
	default:
		report.OK = true
	}
	return report
}

// CollectCardIDs gathers every card id currently placed in a zone. Called at
// deal time to pin the expected deck for later conservation checks.
func CollectCardIDs(st *GameState) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, zp := range zonePiles(st) {
		for _, card := range zp.pile {
			ids[card.ID] = struct{}{}
		}
	}
	return ids
}

type namedPile struct {
	name string
	pile Pile
}

func zonePiles(st *GameState) []namedPile {
	if st == nil {
		return nil
	}
	var out []namedPile
	addSide := func(prefix string, stock, waste Pile, tableau []Pile) {
		out = append(out, namedPile{prefix + "stock", stock}, namedPile{prefix + "waste", waste})
		for i, pile := range tableau {
			out = append(out, namedPile{fmt.Sprintf("%stableau[%d]", prefix, i), pile})
		}
	}
	switch DetectSchema(st) {
	case SchemaLegacyRoot:
		addSide("", st.Stock, st.Waste, st.Tableau)
	case SchemaV1Sided:
		addSide("you.", st.You.Stock, st.You.Waste, st.You.Tableau)
		addSide("opp.", st.Opp.Stock, st.Opp.Waste, st.Opp.Tableau)
	}
	for i, lane := range st.Foundations {
		out = append(out, namedPile{fmt.Sprintf("foundations[%d]", i), lane.Cards})
	}
	return out
}

func knownID(id string, expected map[string]struct{}) bool {
	if expected != nil {
		_, ok := expected[id]
		return ok
	}
	return WellFormedCardID(id)
}

func sortIDs(lists ...[]string) {
	for _, list := range lists {
		sort.Strings(list)
	}
}
