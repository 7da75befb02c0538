package introspect

import (
	"encoding/json"
	"fmt"
)

// relation is a (schema, relation) pair as reported by the planner,
// unquoted.
type relation struct {
	Schema string
	Name   string
}

// planNode is the subset of an EXPLAIN (FORMAT JSON, VERBOSE) node we read.
// Sub-plans, init-plans and CTE bodies all appear under "Plans".
type planNode struct {
	RelationName string     `json:"Relation Name"`
	Schema       string     `json:"Schema"`
	Plans        []planNode `json:"Plans"`
}

type explainEntry struct {
	Plan planNode `json:"Plan"`
}

// parsePlanRelations extracts the relations scanned by a JSON plan, in plan
// order, without duplicates.
func parsePlanRelations(raw []byte) ([]relation, error) {
	var entries []explainEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode query plan: %w", err)
	}

	var rels []relation
	seen := make(map[relation]bool)
	var walk func(n planNode)
	walk = func(n planNode) {
		if n.RelationName != "" {
			rel := relation{Schema: n.Schema, Name: n.RelationName}
			if rel.Schema == "" {
				rel.Schema = "public"
			}
			if !seen[rel] {
				seen[rel] = true
				rels = append(rels, rel)
			}
		}
		for _, child := range n.Plans {
			walk(child)
		}
	}

	for _, e := range entries {
		walk(e.Plan)
	}
	return rels, nil
}
