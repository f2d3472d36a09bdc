/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	sfntypes "github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// maxExecutionName is the Step Functions execution name ceiling.
const maxExecutionName = 80

var invalidExecutionChars = regexp.MustCompile(`[^A-Za-z0-9\-_]`)

// StartInput is the state machine input for one publication run.
type StartInput struct {
	Slug        string `json:"slug"`
	AttemptID   string `json:"attemptId"`
	RequestedBy string `json:"requestedBy,omitempty"`
}

// Execution is the observable state of one publication run.
type Execution struct {
	ARN       string
	Name      string
	Status    string
	StartedAt time.Time

	// StoppedAt stays zero while the run is in flight.
	StoppedAt time.Time
	Output    string
}

// Driver starts and inspects publication state machine runs. Deployments
// that want retries or a manual approval stop between render and announce
// route publication through the machine instead of the in-process pipeline.
type Driver struct {
	client awsx.StepFunctionsAPI
	arn    string
}

// NewDriver constructs a driver bound to one state machine.
func NewDriver(client awsx.StepFunctionsAPI, stateMachineARN string) (*Driver, error) {
	if client == nil {
		return nil, fmt.Errorf("nil Step Functions client")
	}
	if stateMachineARN == "" {
		return nil, fmt.Errorf("empty state machine ARN")
	}
	return &Driver{client: client, arn: stateMachineARN}, nil
}

// ExecutionName builds the run name for an attempt. The name is
// deterministic, so one attempt maps to at most one execution and
// StartPublication is safe to retry.
func ExecutionName(slug, attemptID string) string {
	name := invalidExecutionChars.ReplaceAllString("publish-"+slug, "-")
	suffix := "-" + attemptID
	if len(name)+len(suffix) > maxExecutionName {
		name = name[:maxExecutionName-len(suffix)]
	}
	return name + suffix
}

// StartPublication starts one publication run and returns its execution
// ARN. A run already started under the same name with different input
// surfaces as ErrPublishConflict.
func (d *Driver) StartPublication(ctx context.Context, input StartInput) (string, error) {
	if input.Slug == "" {
		return "", pberrors.NewValidationError("slug", "slug is required")
	}
	if input.AttemptID == "" {
		input.AttemptID = corpus.NewID()
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal execution input: %w", err)
	}

	name := ExecutionName(input.Slug, input.AttemptID)
	out, err := d.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: &d.arn,
		Name:            &name,
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		var exists *sfntypes.ExecutionAlreadyExists
		if errors.As(err, &exists) {
			return "", fmt.Errorf("publication run %s already started: %w", name, pberrors.ErrPublishConflict)
		}
		return "", fmt.Errorf("start publication of %s: %w", input.Slug, err)
	}

	arn := aws.ToString(out.ExecutionArn)
	log.WithFields(map[string]interface{}{
		"slug":      input.Slug,
		"attempt":   input.AttemptID,
		"execution": arn,
	}).Info("publication run started")
	return arn, nil
}

// Status returns the current state of a publication run.
func (d *Driver) Status(ctx context.Context, executionARN string) (*Execution, error) {
	if executionARN == "" {
		return nil, pberrors.NewValidationError("executionArn", "execution ARN is required")
	}

	out, err := d.client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
		ExecutionArn: &executionARN,
	})
	if err != nil {
		var missing *sfntypes.ExecutionDoesNotExist
		if errors.As(err, &missing) {
			return nil, pberrors.NewNotFoundError("Execution", executionARN)
		}
		return nil, fmt.Errorf("describe execution: %w", err)
	}

	exec := &Execution{
		ARN:    aws.ToString(out.ExecutionArn),
		Name:   aws.ToString(out.Name),
		Status: string(out.Status),
		Output: aws.ToString(out.Output),
	}
	if out.StartDate != nil {
		exec.StartedAt = *out.StartDate
	}
	if out.StopDate != nil {
		exec.StoppedAt = *out.StopDate
	}
	return exec, nil
}
