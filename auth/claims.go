/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package auth extracts caller identity from the API Gateway authorizer
// context and wraps the Cognito admin operations used to manage authors.
package auth

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	pberrors "github.com/suparena/pressbox/errors"
)

// AuthorsGroup is the Cognito group whose members may create and publish
// articles.
const AuthorsGroup = "authors"

// Claims is the caller identity the authorizer attached to a request.
type Claims struct {
	Subject string
	Email   string
	Groups  []string
}

// FromRequest extracts claims from a proxy request. REST API Cognito
// authorizers nest the token claims under "claims"; Lambda authorizers may
// write them at the top level, so both shapes are accepted. A request
// without a subject is unauthenticated.
func FromRequest(req events.APIGatewayProxyRequest) (*Claims, error) {
	raw := req.RequestContext.Authorizer
	if len(raw) == 0 {
		return nil, pberrors.ErrUnauthenticated
	}
	claims := raw
	if nested, ok := raw["claims"].(map[string]interface{}); ok {
		claims = nested
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, pberrors.ErrUnauthenticated
	}
	email, _ := claims["email"].(string)

	return &Claims{
		Subject: sub,
		Email:   email,
		Groups:  parseGroups(claims["cognito:groups"]),
	}, nil
}

// InGroup reports group membership. Group names compare case-insensitively
// since Cognito group names are case-preserving but lookups should not be.
func (c *Claims) InGroup(group string) bool {
	for _, g := range c.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// RequireGroup returns ErrForbidden when the caller is outside the group.
func (c *Claims) RequireGroup(group string) error {
	if c.InGroup(group) {
		return nil
	}
	return fmt.Errorf("group %q required: %w", group, pberrors.ErrForbidden)
}

// parseGroups accepts the shapes the authorizer context uses for
// cognito:groups: a JSON array, a bracketed "[a b]" string from the REST
// proxy integration, or a comma-separated string.
func parseGroups(v interface{}) []string {
	switch g := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(g))
		for _, item := range g {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return g
	case string:
		trimmed := strings.Trim(g, "[]")
		if trimmed == "" {
			return nil
		}
		return strings.FieldsFunc(trimmed, func(r rune) bool {
			return r == ' ' || r == ','
		})
	default:
		return nil
	}
}
