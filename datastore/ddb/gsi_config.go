/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

// GSIConfig names the key attributes of a secondary index. The query
// builder consults it so expressions always match the table definition.
type GSIConfig struct {
	// IndexName is the GSI name in DynamoDB.
	IndexName string
	// PartitionKeyName is the partition key attribute of the GSI.
	PartitionKeyName string
	// SortKeyName is the sort key attribute of the GSI.
	SortKeyName string
}

// DefaultGSIConfigs lists the indexes the corpus table defines. The schema
// carries a single overloaded GSI; its attribute names match the index map
// templates registered by the corpus package.
var DefaultGSIConfigs = map[string]GSIConfig{
	"GSI1": {
		IndexName:        "GSI1",
		PartitionKeyName: "GSI1PK",
		SortKeyName:      "GSI1SK",
	},
}

// GetGSIConfig returns the configuration for a given index name.
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := DefaultGSIConfigs[indexName]
	return config, ok
}
