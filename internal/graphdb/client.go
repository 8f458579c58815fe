package graphdb

import (
	"context"
	"errors"
)

// Client is the slice of a graph database the exporter needs.
type Client interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWriteTx runs stmts in order inside one write transaction; either
	// all of them take effect or none do.
	ExecuteWriteTx(ctx context.Context, stmts []Statement) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Statement is one cypher query with its parameters.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

type Options struct {
	URI      string
	Database string
	Username string
	Password string
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
