// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package diarysync

import "context"

// Session supplies the credentials attached to every remote call: the
// bearer token and the tenant id identifying which backend data partition
// requests apply to. An empty value means "not signed in"; the engine
// never writes credentials, only reads them.
type Session interface {
	Token(ctx context.Context) (string, error)
	TenantID(ctx context.Context) (string, error)
}

// StaticSession is a Session with fixed credentials, useful for tests and
// for hosts that refresh the session by swapping the whole value.
type StaticSession struct {
	BearerToken string
	Tenant      string
}

func (s StaticSession) Token(ctx context.Context) (string, error)    { return s.BearerToken, nil }
func (s StaticSession) TenantID(ctx context.Context) (string, error) { return s.Tenant, nil }
