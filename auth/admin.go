/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/suparena/pressbox/awsx"
	pberrors "github.com/suparena/pressbox/errors"
	"github.com/suparena/pressbox/log"
)

// Admin performs author management against one Cognito user pool.
type Admin struct {
	client awsx.CognitoAPI
	poolID string
}

// NewAdmin constructs an admin bound to a user pool.
func NewAdmin(client awsx.CognitoAPI, poolID string) (*Admin, error) {
	if client == nil {
		return nil, fmt.Errorf("nil Cognito client")
	}
	if poolID == "" {
		return nil, fmt.Errorf("empty user pool ID")
	}
	return &Admin{client: client, poolID: poolID}, nil
}

// EnsureAuthor creates the user when missing and puts them in the authors
// group. Reruns and creation races are fine: an existing username is not an
// error, and group membership is idempotent on the Cognito side.
func (a *Admin) EnsureAuthor(ctx context.Context, email string) error {
	if email == "" {
		return pberrors.NewValidationError("email", "required")
	}

	_, err := a.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId: &a.poolID,
		Username:   &email,
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: &email},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if !errors.As(err, &exists) {
			return fmt.Errorf("create author %s: %w", email, err)
		}
		log.Debugf("author %s already exists in pool %s", email, a.poolID)
	}

	return a.AddToAuthors(ctx, email)
}

// AddToAuthors puts an existing user in the authors group.
func (a *Admin) AddToAuthors(ctx context.Context, email string) error {
	if email == "" {
		return pberrors.NewValidationError("email", "required")
	}
	_, err := a.client.AdminAddUserToGroup(ctx, &cognitoidentityprovider.AdminAddUserToGroupInput{
		UserPoolId: &a.poolID,
		Username:   &email,
		GroupName:  aws.String(AuthorsGroup),
	})
	if err != nil {
		return fmt.Errorf("add %s to %s: %w", email, AuthorsGroup, err)
	}
	return nil
}

// DisableAuthor disables the user's sign-in. The account and its articles
// remain.
func (a *Admin) DisableAuthor(ctx context.Context, email string) error {
	if email == "" {
		return pberrors.NewValidationError("email", "required")
	}
	_, err := a.client.AdminDisableUser(ctx, &cognitoidentityprovider.AdminDisableUserInput{
		UserPoolId: &a.poolID,
		Username:   &email,
	})
	if err != nil {
		return fmt.Errorf("disable author %s: %w", email, err)
	}
	return nil
}

// Author describes a user as the pool knows them.
type Author struct {
	Username string
	Subject  string
	Enabled  bool
	Status   string
}

// FindAuthor returns pool details for the email, or nil when no such user
// exists.
func (a *Admin) FindAuthor(ctx context.Context, email string) (*Author, error) {
	if email == "" {
		return nil, pberrors.NewValidationError("email", "required")
	}

	out, err := a.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: &a.poolID,
		Username:   &email,
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get author %s: %w", email, err)
	}

	author := &Author{
		Username: aws.ToString(out.Username),
		Enabled:  out.Enabled,
		Status:   string(out.UserStatus),
	}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			author.Subject = aws.ToString(attr.Value)
		}
	}
	return author, nil
}
