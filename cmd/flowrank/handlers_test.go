package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowrank/flowrank/internal/config"
	"github.com/flowrank/flowrank/pkg/keypool"
	"github.com/flowrank/flowrank/pkg/source"
)

func TestBuildSourcesCoversAllAdapters(t *testing.T) {
	cfg := config.Default()
	sources := buildSources(cfg, keypool.New(nil))

	var names []source.SourceType
	for _, s := range sources {
		names = append(names, s.Name())
	}
	require.Equal(t, source.AllSourceTypes(), names)
}

func TestFilterSources(t *testing.T) {
	all := buildSources(config.Default(), keypool.New(nil))

	got, err := filterSources(all, nil)
	require.NoError(t, err)
	require.Len(t, got, len(all))

	got, err = filterSources(all, []string{"youtube", " Trends "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, source.SourceYouTube, got[0].Name())
	require.Equal(t, source.SourceTrends, got[1].Name())

	_, err = filterSources(all, []string{"myspace"})
	require.Error(t, err)
}
