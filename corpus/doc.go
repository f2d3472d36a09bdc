// Package corpus defines the domain model of the publishing engine: the
// article corpus itself plus the records that orbit it.
//
// Entity types:
//
//   - Article: one instructional piece, Markdown in, rendered HTML out,
//     moving through draft -> scheduled -> published -> archived.
//   - Series: an ordered tutorial track grouping articles.
//   - Subscriber: a reader on the announcement list, double opt-in.
//   - MediaAsset: an uploaded image or attachment, content-addressed in S3.
//   - PublishRecord: the audit trail of one publication attempt.
//
// All five share one DynamoDB table. The package init registers each type's
// index map, EntityType name and unmarshal function, so importing corpus is
// enough to make the storage layer fully type-aware:
//
//	import _ "github.com/suparena/pressbox/corpus"
//
// Key layout:
//
//	Article        PK ARTICLE#<slug>        SK ARTICLE#<slug>
//	Series         PK SERIES#<slug>         SK SERIES#<slug>
//	Subscriber     PK SUBSCRIBER#<email>    SK SUBSCRIBER#<email>
//	MediaAsset     PK ARTICLE#<slug>        SK MEDIA#<object key>
//	PublishRecord  PK ARTICLE#<slug>        SK PUBLISH#<attempt ULID>
//
// Media assets and publish records live under their article's partition, so
// one query by ArticlePK returns the article with everything attached to it.
// GSI1 provides the listing panes: articles by status ordered by publish
// time, subscribers by status ordered by join time, media by checksum.
package corpus
