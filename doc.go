/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package pressbox is the publishing engine behind an instructional article
corpus: Markdown tutorials stored in DynamoDB, rendered to HTML, served
through a CDN and announced to subscribers when they go live.

The root package owns store wiring. OpenStores binds one typed DataStore
per corpus entity to the single table and registers each in a
MultiTypeStorage, so handlers and the CLI resolve stores by type instead
of threading five values through every constructor:

	stores, err := pressbox.OpenStores(awsx.NewDynamoDB(cfg), "pressbox")
	if err != nil {
		return err
	}
	article, err := stores.Articles.GetOne(ctx, "sqs-deep-dive")

Everything else lives in the sub-packages: corpus (entities and the
article lifecycle), content (Markdown), datastore (persistence), media
(S3 + CloudFront), events (EventBridge), schedule (EventBridge
Scheduler), queue (SQS), notify (SES + SNS), auth (Cognito), devto
(cross-posting), pipeline (publication), handler (Lambda entry points)
and cmd (the CLI and the Lambda mains).
*/
package pressbox
