package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request) ([]domain.Candidate, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "feed"})
	reg.Register(stubScanner{name: "document"})

	got, err := reg.Resolve("feed")
	require.NoError(t, err)
	assert.Equal(t, "feed", got.Name())
	assert.Equal(t, []string{"document", "feed"}, reg.Names())

	_, err = reg.Resolve("browser")
	assert.True(t, errors.Is(err, ErrUnknownScanner))
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"linkPattern": "/changelog/", "empty": ""}}
	assert.Equal(t, "/changelog/", req.Option("linkPattern", "x"))
	assert.Equal(t, "fallback", req.Option("empty", "fallback"))
	assert.Equal(t, "3", req.Option("maxDocuments", "3"))
}
