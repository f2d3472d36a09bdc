/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	awsevents "github.com/aws/aws-lambda-go/events"

	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// errorBody is the error envelope every failed request carries.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func errNilDep(name string) error {
	return fmt.Errorf("nil %s", name)
}

// jsonResponse marshals the body. A marshal failure degrades to a bare 500
// rather than an empty 200.
func jsonResponse(status int, body interface{}) awsevents.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Errorf("marshal response: %v", err)
		return awsevents.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    jsonHeaders,
			Body:       `{"error":"internal"}`,
		}
	}
	return awsevents.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(payload),
	}
}

func notFoundResponse(detail string) awsevents.APIGatewayProxyResponse {
	return jsonResponse(http.StatusNotFound, errorBody{Error: "not_found", Detail: detail})
}

func badRequest(detail string) awsevents.APIGatewayProxyResponse {
	return jsonResponse(http.StatusBadRequest, errorBody{Error: "validation", Detail: detail})
}

// errorResponse maps the error taxonomy onto HTTP statuses. Unknown errors
// become opaque 500s; their detail goes to the log, not the client.
func errorResponse(err error) awsevents.APIGatewayProxyResponse {
	switch {
	case pberrors.IsValidationError(err):
		return jsonResponse(http.StatusBadRequest, errorBody{Error: "validation", Detail: err.Error()})
	case errors.Is(err, pberrors.ErrUnauthenticated):
		return jsonResponse(http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
	case pberrors.IsForbidden(err):
		return jsonResponse(http.StatusForbidden, errorBody{Error: "forbidden", Detail: err.Error()})
	case pberrors.IsNotFound(err):
		return jsonResponse(http.StatusNotFound, errorBody{Error: "not_found", Detail: err.Error()})
	case pberrors.IsAlreadyExists(err), pberrors.IsPublishConflict(err), pberrors.IsConditionFailed(err):
		return jsonResponse(http.StatusConflict, errorBody{Error: "conflict", Detail: err.Error()})
	default:
		log.Errorf("api internal error: %v", err)
		return jsonResponse(http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}

// decodeBody unmarshals a request body into out.
func decodeBody(body string, out interface{}) error {
	if body == "" {
		return fmt.Errorf("empty request body")
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}
