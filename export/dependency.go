package export

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/imtaco/db2csv/source"
)

// Order selects the sequence in which tables are exported.
type Order string

const (
	// OrderCatalog keeps the order the catalog returns
	OrderCatalog Order = "catalog"
	// OrderDependency exports referenced tables before the tables referencing them
	OrderDependency Order = "dependency"
)

// orderTables returns the catalog tables in the requested order. The result
// always holds exactly the tables it was given.
func orderTables(ctx context.Context, sourceDB source.SourceDB, tables []string, order Order) ([]string, error) {
	switch order {
	case "", OrderCatalog:
		return tables, nil
	case OrderDependency:
	default:
		return nil, NewError(KindConfig, fmt.Sprintf("unsupported table order %q", order), nil)
	}

	_, dependencies, err := sourceDB.GetTableDependencies(ctx)
	if err != nil {
		return nil, err
	}

	orderedTables, err := topologicalSort(tables, dependencies)
	if err != nil {
		log.Printf("WARNING: Circular dependency detected, falling back to catalog order: %v", err)
		return tables, nil
	}

	return orderedTables, nil
}

// topologicalSort performs topological sorting on tables based on dependencies.
// Ties keep the input order.
func topologicalSort(tables []string, dependencies map[string][]string) ([]string, error) {
	inDegree := make(map[string]int)
	adjList := make(map[string][]string)
	originalNameMap := make(map[string]string)

	for _, table := range tables {
		lowerTable := strings.ToLower(table)
		inDegree[lowerTable] = 0
		adjList[lowerTable] = []string{}
		originalNameMap[lowerTable] = table
	}

	// Build adjacency list and calculate in-degrees
	for _, table := range tables {
		dependent := strings.ToLower(table)
		for _, referenced := range dependencies[dependent] {
			if _, ok := originalNameMap[referenced]; !ok {
				return nil, fmt.Errorf("table %s references unknown table %s", table, referenced)
			}
			// referenced must come before dependent
			adjList[referenced] = append(adjList[referenced], dependent)
			inDegree[dependent]++
		}
	}

	// Find all tables with no dependencies
	queue := []string{}
	for _, table := range tables {
		if inDegree[strings.ToLower(table)] == 0 {
			queue = append(queue, table)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		// Process all tables that depend on current
		for _, dependent := range adjList[strings.ToLower(current)] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, originalNameMap[dependent])
			}
		}
	}

	// Check for circular dependencies
	if len(result) != len(tables) {
		return nil, fmt.Errorf("circular dependency detected: got %d tables, expected %d", len(result), len(tables))
	}

	return result, nil
}
