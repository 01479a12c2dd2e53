// Copyright 2025 The s3dr Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the STS call needed to resolve a role name.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var _ STSAPI = (*sts.Client)(nil)

// ResolveRoleARN returns role unchanged when it is already an ARN, and
// otherwise builds the role ARN in the caller's account and partition.
func ResolveRoleARN(ctx context.Context, api STSAPI, role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", fmt.Errorf("%s is required", KeyReplicationRole)
	}
	if arn.IsARN(role) {
		return role, nil
	}

	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolve role %s: %w", role, err)
	}

	partition := "aws"
	if caller, err := arn.Parse(aws.ToString(out.Arn)); err == nil {
		partition = caller.Partition
	}

	return arn.ARN{
		Partition: partition,
		Service:   "iam",
		AccountID: aws.ToString(out.Account),
		Resource:  "role/" + strings.TrimPrefix(role, "role/"),
	}.String(), nil
}
