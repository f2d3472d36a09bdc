/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package corpus

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/pressbox/registry"
)

// Index map templates for the single-table schema. GSI1 gives each type its
// listing pane: articles by status ordered by publish time, series
// alphabetically, subscribers by status ordered by join time, media by
// checksum for dedupe, publish records by outcome.
var (
	articleIndexMap = map[string]string{
		"PK":     "ARTICLE#{Slug}",
		"SK":     "ARTICLE#{Slug}",
		"GSI1PK": "STATUS#{Status}",
		"GSI1SK": "PUBLISH#{PublishAt}",
	}
	seriesIndexMap = map[string]string{
		"PK":     "SERIES#{Slug}",
		"SK":     "SERIES#{Slug}",
		"GSI1PK": "SERIES",
		"GSI1SK": "TITLE#{Title}",
	}
	subscriberIndexMap = map[string]string{
		"PK":     "SUBSCRIBER#{Email}",
		"SK":     "SUBSCRIBER#{Email}",
		"GSI1PK": "SUBSTATUS#{Status}",
		"GSI1SK": "JOINED#{CreatedAt}",
	}
	mediaAssetIndexMap = map[string]string{
		"PK":     "ARTICLE#{ArticleSlug}",
		"SK":     "MEDIA#{Key}",
		"GSI1PK": "MEDIAHASH#{Checksum}",
		"GSI1SK": "MEDIA",
	}
	publishRecordIndexMap = map[string]string{
		"PK":     "ARTICLE#{ArticleSlug}",
		"SK":     "PUBLISH#{AttemptID}",
		"GSI1PK": "PUBSTATUS#{Status}",
		"GSI1SK": "{AttemptID}",
	}
)

func init() {
	registry.RegisterIndexMap[Article](articleIndexMap)
	registry.RegisterIndexMap[Series](seriesIndexMap)
	registry.RegisterIndexMap[Subscriber](subscriberIndexMap)
	registry.RegisterIndexMap[MediaAsset](mediaAssetIndexMap)
	registry.RegisterIndexMap[PublishRecord](publishRecordIndexMap)

	registry.RegisterEntityName[Article](TypeArticle)
	registry.RegisterEntityName[Series](TypeSeries)
	registry.RegisterEntityName[Subscriber](TypeSubscriber)
	registry.RegisterEntityName[MediaAsset](TypeMediaAsset)
	registry.RegisterEntityName[PublishRecord](TypePublishRecord)

	registry.RegisterType(TypeArticle, unmarshalAs[Article])
	registry.RegisterType(TypeSeries, unmarshalAs[Series])
	registry.RegisterType(TypeSubscriber, unmarshalAs[Subscriber])
	registry.RegisterType(TypeMediaAsset, unmarshalAs[MediaAsset])
	registry.RegisterType(TypePublishRecord, unmarshalAs[PublishRecord])
}

func unmarshalAs[T any](item map[string]types.AttributeValue) (interface{}, error) {
	out := new(T)
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return nil, err
	}
	return out, nil
}
