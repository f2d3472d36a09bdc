/*
Package errors provides semantic error types for the Pressbox engine.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrNoIndexMap      = errors.New("no index map found for type")
	    ErrUnauthenticated = errors.New("unauthenticated")
	    ErrRenderFailed    = errors.New("render failed")
	    ErrPublishConflict = errors.New("publish conflict")
	    ErrEventDelivery   = errors.New("event delivery failed")
	)

Usage:

	// Check error type
	article, err := store.GetOne(ctx, "intro-to-lambda")
	if err != nil {
	    if errors.IsNotFound(err) {
	        // Handle not found case
	        return nil, fmt.Errorf("article %s does not exist", "intro-to-lambda")
	    }
	    return nil, err
	}

	// Create typed errors
	err := errors.NewNotFoundError("Article", "intro-to-lambda")
	err := errors.NewValidationError("publishAt", "required for scheduled articles")
	err := errors.NewPublishConflictError("intro-to-lambda", "archived", "published")

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
