/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package media

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	"github.com/suparena/pressbox/log"
)

// Invalidator purges CDN paths after their backing content changes. The
// pipeline invalidates the article page and cover image on republish; the
// CLI invalidates asset paths it re-uploads during a sync.
type Invalidator struct {
	client         awsx.CloudFrontAPI
	distributionID string
}

// NewInvalidator constructs an invalidator for one distribution. An empty
// distribution ID produces a no-op invalidator for deployments without a
// CDN.
func NewInvalidator(client awsx.CloudFrontAPI, distributionID string) *Invalidator {
	return &Invalidator{client: client, distributionID: distributionID}
}

// Invalidate submits one invalidation covering the given paths and returns
// the invalidation ID. Paths are deduplicated and forced to a leading slash.
// No paths, or no configured distribution, is a no-op returning "".
func (i *Invalidator) Invalidate(ctx context.Context, paths ...string) (string, error) {
	unique := normalizePaths(paths)
	if len(unique) == 0 {
		return "", nil
	}
	if i.distributionID == "" {
		log.Debugf("no CDN distribution configured, skipping invalidation of %d paths", len(unique))
		return "", nil
	}

	ref := corpus.NewID()
	out, err := i.client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: &i.distributionID,
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: &ref,
			Paths: &cftypes.Paths{
				Items:    unique,
				Quantity: aws.Int32(int32(len(unique))),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("invalidate %d paths on %s: %w", len(unique), i.distributionID, err)
	}

	id := ""
	if out.Invalidation != nil && out.Invalidation.Id != nil {
		id = *out.Invalidation.Id
	}
	log.WithFields(map[string]interface{}{
		"distribution": i.distributionID,
		"paths":        len(unique),
		"invalidation": id,
	}).Debug("submitted CDN invalidation")
	return id, nil
}

// normalizePaths dedupes, drops empties, forces the leading slash and sorts
// so invalidation batches are deterministic.
func normalizePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
