/*
Package storagemodels defines the data structures shared by Pressbox datastore
implementations.

Key Types:

QueryParams:
Parameters for querying the datastore:

	params := &QueryParams{
	    TableName:              "pressbox",
	    KeyConditionExpression: "GSI1PK = :pk",
	    ExpressionAttributeValues: map[string]types.AttributeValue{
	        ":pk": &types.AttributeValueMemberS{Value: "STATUS#published"},
	    },
	    IndexName: aws.String("GSI1"),
	    Limit:     aws.Int32(50),
	}

QueryPage:
A single page of results with the resume key for the next call:

	page, err := store.QueryPage(ctx, params)
	if page.HasMore() {
	    params.ExclusiveStartKey = page.LastEvaluatedKey
	}

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T                               // The typed entity
	    Raw   map[string]types.AttributeValue // Raw DynamoDB attributes
	    Error error                           // Item-specific error, if any
	    Meta  StreamMeta                      // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
