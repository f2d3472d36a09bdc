/*
Package registry manages type registration and index mapping for the Pressbox
single-table schema.

The registry system enables:
  - Polymorphic entity storage in a single DynamoDB table
  - Dynamic type resolution based on EntityType attributes
  - Flexible key patterns through index maps

Type Registry:
Maps EntityType values to unmarshal functions:

	registry.RegisterType("Article", func(item map[string]types.AttributeValue) (interface{}, error) {
	    a := &corpus.Article{}
	    if err := attributevalue.UnmarshalMap(item, a); err != nil {
	        return nil, err
	    }
	    return a, nil
	})

Index Map Registry:
Associates Go types with DynamoDB key patterns:

	indexMap := map[string]string{
	    "PK":     "ARTICLE#{Slug}",
	    "SK":     "ARTICLE#{Slug}",
	    "GSI1PK": "STATUS#{Status}",
	    "GSI1SK": "PUBLISH#{PublishAt}",
	}
	registry.RegisterIndexMap[corpus.Article](indexMap)

The registry is thread-safe and should be populated during initialization,
typically in init() functions. The corpus package registers every entity it
owns; applications embedding additional types register theirs the same way.
*/
package registry
